package modsh

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxEcho(t *testing.T) {
	sb := NewSandbox(afero.NewMemMapFs())
	out, err := sb.Run(context.Background(), "echo hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestSandboxFileAccess(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/motd", []byte("welcome\n"), 0o644))
	sb := NewSandbox(fs)

	out, err := sb.Run(context.Background(), "cat /etc/motd")
	require.NoError(t, err)
	assert.Equal(t, "welcome", out)

	out, err = sb.Run(context.Background(), "ls /etc")
	require.NoError(t, err)
	assert.Equal(t, "motd", out)
}

func TestSandboxRedirection(t *testing.T) {
	fs := afero.NewMemMapFs()
	sb := NewSandbox(fs)

	_, err := sb.Run(context.Background(), "echo data > /out.txt")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "data\n", string(content))
}

func TestSandboxControlFlow(t *testing.T) {
	sb := NewSandbox(afero.NewMemMapFs())
	out, err := sb.Run(context.Background(), "for i in 1 2 3; do echo n$i; done")
	require.NoError(t, err)
	assert.Equal(t, "n1\nn2\nn3", out)
}

func TestSandboxUnknownCommand(t *testing.T) {
	sb := NewSandbox(afero.NewMemMapFs())
	out, err := sb.Run(context.Background(), "rm -rf /")
	require.Error(t, err)
	assert.Contains(t, out, "rm: command not found")
}

func TestSandboxParseError(t *testing.T) {
	sb := NewSandbox(afero.NewMemMapFs())
	_, err := sb.Run(context.Background(), "if then fi")
	require.Error(t, err)
}

func TestSystemModelThroughShell(t *testing.T) {
	root := NewNode("root", "")
	root.MustAdd(&Field{Name: "system", Kind: KindNode, Node: SystemModel()})

	sh, err := NewShell(root)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(sh.Fs(), "/hello.txt", []byte("hi from fs\n"), 0o644))

	var out strings.Builder
	sh.SetIO(strings.NewReader(""), &out)

	sh.Eval(context.Background(), `system run "cat /hello.txt"`)
	assert.Equal(t, "hi from fs\n", out.String())
}
