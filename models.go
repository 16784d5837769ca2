package modsh

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// PipeFunctions returns a node with the common pipe functions: line
// filters, formatters, a gojq query and a save-to-file function. Use it as
// a NodeConfig.Pipe target; it pipes into itself so functions chain.
func PipeFunctions() *Node {
	n := NewNode("pipe", "Common pipe functions")
	n.Config.PipeSelf = true
	n.MustAdd(
		&Field{
			Name:        "include",
			Kind:        KindAny,
			Description: "Filter output by pattern inclusion",
			Handler:     pipeInclude,
		},
		&Field{
			Name:        "exclude",
			Kind:        KindAny,
			Description: "Filter output by pattern exclusion",
			Handler:     pipeExclude,
		},
		&Field{
			Name:        "json",
			Kind:        KindFunc,
			Description: "Convert results to JSON string",
			Handler:     pipeJSON,
		},
		&Field{
			Name:        "yaml",
			Kind:        KindFunc,
			Description: "Convert results to YAML string",
			Handler:     pipeYAML,
		},
		&Field{
			Name:        "kv",
			Kind:        KindFunc,
			Description: "Convert results to key-value lines",
			Handler:     pipeKV,
		},
		&Field{
			Name:        "jq",
			Kind:        KindString,
			Description: "Transform results with a jq query",
			Handler:     pipeJq,
		},
		&Field{
			Name:        "save",
			Kind:        KindString,
			Description: "Save results to a file on the shell filesystem",
			Handler:     pipeSave,
			WantsShell:  true,
		},
	)
	return n
}

// pipeInclude keeps only the lines containing the requested pattern.
func pipeInclude(inv *Invocation) (any, error) {
	return filterLines(inv.Prev, fmt.Sprint(inv.Args["include"]), true), nil
}

// pipeExclude drops the lines containing the requested pattern.
func pipeExclude(inv *Invocation) (any, error) {
	return filterLines(inv.Prev, fmt.Sprint(inv.Args["exclude"]), false), nil
}

func filterLines(data any, pattern string, keep bool) string {
	text, ok := data.(string)
	if !ok {
		text = fmt.Sprint(data)
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, pattern) == keep {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func pipeJSON(inv *Invocation) (any, error) {
	data, err := json.MarshalIndent(inv.Prev, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("json formatter: %w", err)
	}
	return string(data), nil
}

func pipeYAML(inv *Invocation) (any, error) {
	data, err := yaml.Marshal(inv.Prev)
	if err != nil {
		return nil, fmt.Errorf("yaml formatter: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func pipeKV(inv *Invocation) (any, error) {
	var b strings.Builder
	if err := OutputterKV(&b, inv.Prev, nil); err != nil {
		return nil, err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// pipeJq runs a gojq query over the previous result. The input is
// normalized through a JSON round trip so handler results of any shape
// become plain maps and slices.
func pipeJq(inv *Invocation) (any, error) {
	queryText, _ := inv.Args["jq"].(string)
	if queryText == "" {
		return nil, fmt.Errorf("jq: query is required")
	}
	query, err := gojq.Parse(queryText)
	if err != nil {
		return nil, fmt.Errorf("jq: invalid query: %w", err)
	}
	normalized, err := normalizeJSON(inv.Prev)
	if err != nil {
		return nil, fmt.Errorf("jq: %w", err)
	}
	var results []any
	iter := query.Run(normalized)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

func normalizeJSON(v any) (any, error) {
	// JSON strings pipe through decoded so queries address their fields.
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return decoded, nil
		}
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// pipeSave writes the rendered previous result to a file on the shell
// filesystem and passes the result through unchanged.
func pipeSave(inv *Invocation) (any, error) {
	path, _ := inv.Args["save"].(string)
	if path == "" {
		return nil, fmt.Errorf("save: file path is required")
	}
	if inv.Shell == nil {
		return nil, fmt.Errorf("save: no shell filesystem available")
	}
	text, ok := inv.Prev.(string)
	if !ok {
		raw, err := json.MarshalIndent(inv.Prev, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("save: %w", err)
		}
		text = string(raw)
	}
	if err := afero.WriteFile(inv.Shell.Fs(), path, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return inv.Prev, nil
}
