package modsh

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FieldValue is one matched leaf field and its raw collected tokens.
type FieldValue struct {
	Field *Field
	// Raw holds the collected value tokens in encounter order.
	Raw []string
	// Pending marks a field that was referenced but given no value yet.
	Pending bool
}

// value returns the collected raw value: a single string, or a []string
// when more than one token was collected.
func (fv *FieldValue) value() any {
	if len(fv.Raw) == 1 {
		return fv.Raw[0]
	}
	vals := make([]any, len(fv.Raw))
	for i, r := range fv.Raw {
		vals[i] = r
	}
	return vals
}

// add appends one raw token to the field's collected values.
func (fv *FieldValue) add(text string) {
	fv.Raw = append(fv.Raw, text)
	fv.Pending = false
}

// Frame records one node's matched fields during a single segment walk.
type Frame struct {
	Node *Node
	// Param is the field name through which the frame was entered; empty
	// for the segment's starting frame.
	Param string
	// MapKey and IsBridge mark a frame entered through a dynamic map
	// field: the frame carries the literal key and the map field itself.
	MapKey   string
	IsBridge bool
	Fields   []*FieldValue
	// Defaults are the node's default values at resolution time.
	Defaults map[string]any
}

// field returns the FieldValue collected for the given canonical name, or
// nil when the field was not referenced on this frame.
func (fr *Frame) field(name string) *FieldValue {
	for _, fv := range fr.Fields {
		if fv.Field.Name == name {
			return fv
		}
	}
	return nil
}

// rawValues returns the frame's collected fields as a raw value map,
// skipping pending entries.
func (fr *Frame) rawValues() map[string]any {
	out := map[string]any{}
	for _, fv := range fr.Fields {
		if fv.Pending {
			continue
		}
		out[fv.Field.Name] = fv.value()
	}
	return out
}

// Segment is the ordered frame chain of one pipe-delimited command chunk.
type Segment struct {
	Frames []*Frame
}

// deepest returns the last non-bridge frame of the segment.
func (seg *Segment) deepest() *Frame {
	for i := len(seg.Frames) - 1; i >= 0; i-- {
		if !seg.Frames[i].IsBridge {
			return seg.Frames[i]
		}
	}
	return seg.Frames[len(seg.Frames)-1]
}

// lastField returns the most recently matched leaf field across the
// segment's frames, or nil when the segment stopped at a bare node.
func (seg *Segment) lastField() *FieldValue {
	for i := len(seg.Frames) - 1; i >= 0; i-- {
		if n := len(seg.Frames[i].Fields); n > 0 {
			return seg.Frames[i].Fields[n-1]
		}
	}
	return nil
}

// hasValues reports whether any field in the segment carries a collected
// value. Segments without values can resolve to subshell navigation.
func (seg *Segment) hasValues() bool {
	for _, fr := range seg.Frames {
		for _, fv := range fr.Fields {
			if !fv.Pending {
				return true
			}
		}
	}
	return false
}

// Resolution is the outcome of walking one full line against the tree.
type Resolution struct {
	Segments []*Segment
	Help     HelpMode
}

// resolveOptions tunes a resolution pass.
type resolveOptions struct {
	// help truncates resolution for help/completion: presence constants
	// are not applied to the trailing field and multiline capture is
	// skipped.
	help bool
	// multiline enables the blocking multi-line capture pass; it requires
	// an input source.
	multiline bool
	input     *bufio.Reader
	sentinel  string
	endMarker string
}

// resolveLine tokenizes a line and walks every pipe segment against the
// tree starting at the given node.
func resolveLine(start *Node, line string, opts resolveOptions) (*Resolution, error) {
	tokenSegs, help, err := SplitLine(line)
	if err != nil {
		return nil, err
	}
	if help != HelpNone {
		opts.help = true
	}

	res := &Resolution{Help: help}
	current := start
	for i, tokens := range tokenSegs {
		if i > 0 {
			target := current.pipeTarget()
			if target == nil {
				return nil, &PipeError{Node: current}
			}
			current = target
		}
		seg, last, err := resolveSegment(current, tokens, opts)
		if err != nil {
			return nil, err
		}
		res.Segments = append(res.Segments, seg)
		captureDefaults(seg)
		current = last
	}

	if opts.multiline && !opts.help {
		if err := collectMultiline(res, opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// resolveSegment walks one segment's tokens. Returns the segment and the
// node resolution ended at.
func resolveSegment(start *Node, tokens []Token, opts resolveOptions) (*Segment, *Node, error) {
	frame := &Frame{Node: start}
	seg := &Segment{Frames: []*Frame{frame}}
	var cur *FieldValue

	idx := 0
	for idx < len(tokens) {
		tok := tokens[idx]
		idx++

		// Quoted and bracketed tokens are always values.
		if tok.Quoted {
			if cur == nil {
				return nil, nil, &UnknownTokenError{
					Node:        frame.Node,
					Token:       tok.Text,
					Suggestions: frame.Node.FieldNames(),
				}
			}
			cur.add(tok.Text)
			continue
		}

		m := frame.Node.Lookup(tok.Text)

		// Enum values win over prefix matches of sibling fields while an
		// enum field is collecting, but an exact field match still ends
		// the collection.
		if m.Kind != MatchExact && cur != nil && cur.Field.Kind == KindEnum {
			if containsString(cur.Field.Enum, tok.Text) {
				cur.add(tok.Text)
				continue
			}
			if cands := prefixMatches(cur.Field.Enum, tok.Text); len(cands) > 0 {
				return nil, nil, &AmbiguousTokenError{Node: frame.Node, Token: tok.Text, Candidates: cands}
			}
		}

		switch m.Kind {
		case MatchExact, MatchPrefix:
			applyPresence(cur)
			f := m.Field
			switch f.Kind {
			case KindNode:
				next := &Frame{Node: f.Node, Param: f.Name}
				seg.Frames = append(seg.Frames, next)
				frame = next
				cur = nil
			case KindMap:
				if idx >= len(tokens) {
					// Key still missing: record the map field as pending
					// so help can describe the expected key.
					cur = &FieldValue{Field: f, Pending: true}
					frame.Fields = append(frame.Fields, cur)
					break
				}
				key := tokens[idx].Text
				idx++
				bridge := &Frame{Node: f.Node, Param: f.Name, MapKey: key, IsBridge: true}
				next := &Frame{Node: f.Node, Param: f.Name, MapKey: key}
				seg.Frames = append(seg.Frames, bridge, next)
				frame = next
				cur = nil
			default:
				cur = &FieldValue{Field: f, Pending: true}
				if prev := frame.field(f.Name); prev != nil {
					*prev = *cur
					cur = prev
				} else {
					frame.Fields = append(frame.Fields, cur)
				}
			}
		case MatchAmbiguous:
			return nil, nil, &AmbiguousTokenError{Node: frame.Node, Token: tok.Text, Candidates: m.Candidates}
		case MatchNone:
			if cur != nil {
				cur.add(tok.Text)
				continue
			}
			return nil, nil, &UnknownTokenError{
				Node:        frame.Node,
				Token:       tok.Text,
				Suggestions: frame.Node.FieldNames(),
			}
		}
	}

	// Presence for the trailing field applies on execution only; help mode
	// needs to see the field as still pending.
	if !opts.help {
		applyPresence(cur)
	}
	return seg, frame.Node, nil
}

// applyPresence assigns the presence constant to a field referenced with no
// following value token.
func applyPresence(fv *FieldValue) {
	if fv == nil || !fv.Pending || fv.Field.Presence == nil {
		return
	}
	fv.Raw = append(fv.Raw, presenceText(fv.Field.Presence))
	fv.Pending = false
}

func presenceText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(t)
	}
}

// captureDefaults records node defaults on every frame of a segment.
func captureDefaults(seg *Segment) {
	for _, fr := range seg.Frames {
		if fr.IsBridge {
			continue
		}
		fr.Defaults = fr.Node.defaults()
	}
}

// collectMultiline runs the blocking multi-line capture pass: for every
// multiline-enabled field whose single collected value is the sentinel
// token, further lines are read from the input source until the end marker
// or EOF and joined with newlines into one value.
func collectMultiline(res *Resolution, opts resolveOptions) error {
	if opts.input == nil {
		return nil
	}
	for _, seg := range res.Segments {
		for _, fr := range seg.Frames {
			for _, fv := range fr.Fields {
				if !fv.Field.Multiline || len(fv.Raw) != 1 || fv.Raw[0] != opts.sentinel {
					continue
				}
				text, err := readMultiline(opts.input, opts.endMarker)
				if err != nil {
					return err
				}
				fv.Raw = []string{text}
			}
		}
	}
	return nil
}

// readMultiline blocks on the shared input reader until the end marker line
// or EOF. EOF ends the capture, not the session.
func readMultiline(r *bufio.Reader, endMarker string) (string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err == io.EOF {
			if line != "" && line != endMarker {
				lines = append(lines, line)
			}
			break
		}
		if err != nil {
			return "", err
		}
		if endMarker != "" && line == endMarker {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func prefixMatches(list []string, prefix string) []string {
	var out []string
	for _, v := range list {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
