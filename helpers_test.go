package modsh

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testSchema builds the command tree shared by the engine tests: a show
// subshell with piped read commands, a status node with a presence flag, a
// workers map and a few leaf commands exercising enums, multiline capture
// and context injection.
func testSchema() *Node {
	pipes := PipeFunctions()

	show := NewNode("show", "Show information")
	show.Config.Subshell = true
	show.Config.Prompt = "demo[show]#"
	show.Config.Pipe = pipes
	show.MustAdd(
		&Field{
			Name:        "version",
			Kind:        KindFunc,
			Description: "Show version",
			Handler: func(inv *Invocation) (any, error) {
				return "1.2.3", nil
			},
		},
		&Field{
			Name:        "inventory",
			Kind:        KindFunc,
			Description: "Show inventory",
			Outputter:   OutputterJSON,
			Handler: func(inv *Invocation) (any, error) {
				return map[string]any{
					"hosts": []any{
						map[string]any{"name": "core-1", "cpus": 8},
						map[string]any{"name": "core-2", "cpus": 16},
					},
				}, nil
			},
		},
	)

	worker := NewNode("worker", "Worker settings")
	worker.MustAdd(
		&Field{Name: "cpu", Kind: KindInt, Description: "CPU share", Default: 1},
		&Field{Name: "memory", Kind: KindInt, Description: "Memory limit in MB", Default: 256},
	)
	worker.Run = func(inv *Invocation) (any, error) {
		return inv.Args, nil
	}

	status := NewNode("status", "Engine status")
	status.MustAdd(
		&Field{Name: "detailed", Kind: KindBool, Description: "Include details", Presence: true, Default: false},
	)
	status.Run = func(inv *Invocation) (any, error) {
		return inv.Args, nil
	}

	root := NewNode("root", "Test shell")
	root.Config.Pipe = pipes
	root.MustAdd(
		&Field{Name: "show", Kind: KindNode, Description: "Show information", Node: show},
		&Field{Name: "status", Kind: KindNode, Description: "Engine status", Node: status},
		&Field{
			Name:           "workers",
			Kind:           KindMap,
			Description:    "Configure named workers",
			KeyName:        "name",
			KeyDescription: "Worker name",
			Node:           worker,
		},
		&Field{
			Name:        "mode",
			Kind:        KindEnum,
			Description: "Set engine mode",
			Enum:        []string{"fast", "safe"},
			Handler: func(inv *Invocation) (any, error) {
				return inv.Args["mode"], nil
			},
		},
		&Field{
			Name:        "annotate",
			Kind:        KindString,
			Description: "Attach a note",
			Multiline:   true,
			Handler: func(inv *Invocation) (any, error) {
				return inv.Args["annotate"], nil
			},
		},
		&Field{
			Name:        "tree",
			Kind:        KindFunc,
			Description: "Show schema root name",
			WantsRoot:   true,
			Handler: func(inv *Invocation) (any, error) {
				return inv.Root.Name, nil
			},
		},
	)
	return root
}

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	sh, err := NewShellWithConfig(testSchema(), ShellConfig{Prompt: "demo#"})
	require.NoError(t, err)
	var out bytes.Buffer
	sh.SetIO(strings.NewReader(""), &out)
	return sh, &out
}

// evalLine runs one line and returns the trimmed output it produced.
func evalLine(t *testing.T, sh *Shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	sh.Eval(context.Background(), line)
	return strings.TrimRight(out.String(), "\n")
}
