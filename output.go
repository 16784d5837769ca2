package modsh

import (
	"fmt"
	"io"
)

// Outputter renders a final result to the shell output.
type Outputter func(w io.Writer, v any, opts map[string]any) error

// Processor transforms a result before rendering or before it is handed to
// the next pipe segment.
type Processor func(v any) (any, error)

// Result lets a handler select its own outputter, overriding both the
// matched field's and the node's declared one.
type Result struct {
	Value     any
	Outputter Outputter
	Options   map[string]any
}

// selectOutput picks the renderer for an execution per the precedence:
// handler-tagged Result, then the last matched field of segment 0, then
// segment 0's deepest node, then the plain text writer.
func selectOutput(res *Resolution, value any) (any, Outputter, map[string]any) {
	if tagged, ok := value.(Result); ok {
		out := tagged.Outputter
		if out == nil {
			out = OutputterText
		}
		return tagged.Value, out, tagged.Options
	}
	if len(res.Segments) > 0 {
		seg := res.Segments[0]
		if fv := seg.lastField(); fv != nil && fv.Field.Outputter != nil {
			return value, fv.Field.Outputter, fv.Field.OutputterOptions
		}
		node := seg.deepest().Node
		if node.Config.Outputter != nil {
			return value, node.Config.Outputter, node.Config.OutputterOptions
		}
	}
	return value, OutputterText, nil
}

// untag strips a Result wrapper from an intermediate segment value so pipe
// handlers always receive the bare value.
func untag(v any) any {
	if tagged, ok := v.(Result); ok {
		return tagged.Value
	}
	return v
}

// OutputterText is the default renderer: plain fmt rendering with a
// trailing newline.
func OutputterText(w io.Writer, v any, _ map[string]any) error {
	text, ok := v.(string)
	if !ok {
		text = fmt.Sprint(v)
	}
	if len(text) == 0 || text[len(text)-1] != '\n' {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
