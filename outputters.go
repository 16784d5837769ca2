package modsh

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// OutputterJSON renders the result as indented JSON.
func OutputterJSON(w io.Writer, v any, _ map[string]any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("json output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// OutputterYAML renders the result as a YAML document.
func OutputterYAML(w io.Writer, v any, _ map[string]any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("yaml output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// OutputterKV renders a map result as flat "key: value" lines sorted by
// key; non-map results fall back to plain text.
func OutputterKV(w io.Writer, v any, _ map[string]any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return OutputterText(w, v, nil)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, " %s: %v\n", k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

var (
	richKeyColor    = color.New(color.FgCyan, color.Bold)
	richStringColor = color.New(color.FgGreen)
	richNumberColor = color.New(color.FgMagenta)
)

// OutputterRich renders structured results as colorized, indented text.
// Options: "indent" overrides the two-space default.
func OutputterRich(w io.Writer, v any, opts map[string]any) error {
	indent := "  "
	if s, ok := opts["indent"].(string); ok {
		indent = s
	}
	var b strings.Builder
	writeRich(&b, v, indent, 0)
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRich(b *strings.Builder, v any, indent string, depth int) {
	pad := strings.Repeat(indent, depth)
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 || depth > 0 {
				b.WriteString("\n")
			}
			b.WriteString(pad)
			b.WriteString(richKeyColor.Sprint(k))
			b.WriteString(":")
			if isScalar(t[k]) {
				b.WriteString(" ")
				writeRich(b, t[k], indent, 0)
			} else {
				writeRich(b, t[k], indent, depth+1)
			}
		}
	case []any:
		for _, item := range t {
			b.WriteString("\n")
			b.WriteString(pad)
			b.WriteString("- ")
			writeRich(b, item, indent, 0)
		}
	case string:
		b.WriteString(richStringColor.Sprint(t))
	case int, int64, float64, bool:
		b.WriteString(richNumberColor.Sprint(t))
	case nil:
		b.WriteString("null")
	default:
		fmt.Fprintf(b, "%v", t)
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
