package modsh

import (
	"fmt"
	"sort"
	"strings"
)

// globalCommands are the schema-independent shell commands.
var globalCommands = map[string]string{
	"exit": "Exit current shell",
	"top":  "Exit to top shell",
	"end":  "Exit application",
	"pwd":  "Print current shell path",
	"cls":  "Clear shell screen",
	"help": "Print help message",
}

// helpForLine produces the help text for a partial command line: the
// candidate next tokens with descriptions, or an error message naming the
// offending token.
func (s *Shell) helpForLine(line string, verbose bool) string {
	line = strings.TrimRight(strings.TrimSpace(line), "?")
	res, err := resolveLine(s.Node(), line, resolveOptions{help: true})
	if err != nil {
		var amb *AmbiguousTokenError
		if asAmbiguous(err, &amb) {
			return s.nodeHelp(amb.Node, nil, amb.Token, verbose)
		}
		return err.Error()
	}
	seg := res.Segments[len(res.Segments)-1]
	frame := seg.Frames[len(seg.Frames)-1]

	if n := len(frame.Fields); n > 0 && frame.Fields[n-1].Pending {
		return s.fieldHelp(frame.Fields[n-1].Field, verbose)
	}
	return s.nodeHelp(frame.Node, frame, "", verbose)
}

func asAmbiguous(err error, target **AmbiguousTokenError) bool {
	if e, ok := err.(*AmbiguousTokenError); ok {
		*target = e
		return true
	}
	return false
}

// fieldHelp describes the expected value of the trailing pending field.
func (s *Shell) fieldHelp(f *Field, verbose bool) string {
	lines := map[string]string{}
	name := fmt.Sprintf("<'%s' value>", f.DisplayName())
	switch {
	case f.Kind == KindFunc:
		lines["<ENTER>"] = "Execute command"
	case f.Kind == KindMap:
		// The map key hint wins even when the field carries a handler.
		key := f.KeyName
		if key == "" {
			key = "key"
		}
		desc := f.KeyDescription
		if desc == "" {
			desc = f.Description
		}
		lines[fmt.Sprintf("<'%s' value>", key)] = desc
	case f.Handler != nil:
		lines[name] = f.Description
		lines["<ENTER>"] = "Execute command"
	case f.Kind == KindEnum:
		lines[name] = strings.Join(f.Enum, ", ")
	case f.Source != nil:
		lines[name] = strings.Join(f.Source(), ", ")
	default:
		desc := f.Description
		if verbose {
			desc += verboseDetail(f)
		}
		lines[name] = desc
		if f.Multiline {
			lines[s.config.MultilineSentinel] = "Collect value using multi line input mode"
		}
	}
	return formatHelpLines(lines)
}

// nodeHelp lists the available next tokens at a node. When match is
// non-empty only fields it prefixes are listed; fields already collected on
// the frame are skipped.
func (s *Shell) nodeHelp(node *Node, frame *Frame, match string, verbose bool) string {
	lines := map[string]string{}
	if node.Config.Subshell && node != s.Node() && match == "" {
		lines["<ENTER>"] = "Enter command subshell"
	}
	for _, f := range node.Fields() {
		if frame != nil && frame.field(f.Name) != nil {
			continue
		}
		name := f.DisplayName()
		if match != "" && f.prefixOf(match) == "" {
			continue
		}
		desc := f.Description
		if verbose {
			desc += verboseDetail(f)
		}
		lines[name] = desc
	}
	if node.pipeTarget() != nil && match == "" {
		lines["|"] = "Execute pipe command"
	}
	return formatHelpLines(lines)
}

func verboseDetail(f *Field) string {
	return fmt.Sprintf("; default '%v', type '%s', is required - %t", f.Default, f.Kind, f.Required)
}

// formatHelpLines renders sorted, column-aligned help rows.
func formatHelpLines(lines map[string]string) string {
	keys := make([]string, 0, len(lines))
	width := 0
	for k := range lines {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	rows := make([]string, 0, len(keys))
	for _, k := range keys {
		padding := strings.Repeat(" ", width-len(k)+4)
		rows = append(rows, fmt.Sprintf(" %s%s%s", k, padding, lines[k]))
	}
	return strings.Join(rows, "\n")
}

// cmdHelpGlobal implements the help command: schema help for the argument
// plus the global command table when no deeper path is given.
func (s *Shell) cmdHelpGlobal(arg string) {
	verbose := strings.HasSuffix(strings.TrimSpace(arg), "??")
	text := s.helpForLine(arg, verbose)
	if len(strings.Fields(arg)) <= 1 {
		extra := map[string]string{}
		for name, desc := range globalCommands {
			extra[name] = desc
		}
		if text != "" {
			text += "\n"
		}
		text += formatHelpLines(extra)
	}
	s.write(text)
}

// Complete returns completion candidates for a partial line, for use by an
// external line editor. The semantics follow help resolution: field names
// at the cursor's node, enum or sourced values for a pending field, and the
// multiline sentinel where applicable.
func (s *Shell) Complete(line string) []string {
	var out []string
	trimmed := strings.TrimLeft(line, " \t")

	// First word also completes against global commands.
	if !strings.ContainsAny(strings.TrimRight(trimmed, " \t"), " \t") {
		word := strings.TrimSpace(trimmed)
		for name := range globalCommands {
			if strings.HasPrefix(name, word) {
				out = append(out, name)
			}
		}
	}

	res, err := resolveLine(s.Node(), line, resolveOptions{help: true})
	if err != nil {
		var amb *AmbiguousTokenError
		if asAmbiguous(err, &amb) {
			out = append(out, amb.Candidates...)
		}
		sort.Strings(out)
		return out
	}

	seg := res.Segments[len(res.Segments)-1]
	frame := seg.Frames[len(seg.Frames)-1]
	atWordEnd := !strings.HasSuffix(line, " ") && !strings.HasSuffix(line, "\t")
	if n := len(frame.Fields); n > 0 && frame.Fields[n-1].Pending {
		f := frame.Fields[n-1].Field
		switch {
		case atWordEnd:
			// The trailing word resolved by prefix; complete it to the
			// full field name.
			out = append(out, f.DisplayName())
		case f.Kind == KindEnum:
			out = append(out, f.Enum...)
		case f.Source != nil:
			out = append(out, f.Source()...)
		case f.Multiline:
			out = append(out, s.config.MultilineSentinel)
		}
	} else {
		for _, f := range frame.Node.Fields() {
			if frame.field(f.Name) == nil {
				out = append(out, f.DisplayName())
			}
		}
	}
	sort.Strings(out)
	return out
}
