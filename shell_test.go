package modsh

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellEvalBasics(t *testing.T) {
	sh, out := newTestShell(t)

	assert.Equal(t, "1.2.3", evalLine(t, sh, out, "show version"))
	assert.Equal(t, "1.2.3", evalLine(t, sh, out, "sh ver"))
	assert.Equal(t, "fast", evalLine(t, sh, out, "mode fast"))

	// Empty lines are silent no-ops.
	assert.Equal(t, "", evalLine(t, sh, out, "   "))
}

func TestShellErrorsAreWrittenNotFatal(t *testing.T) {
	sh, out := newTestShell(t)

	got := evalLine(t, sh, out, "bogus")
	assert.Contains(t, got, `"bogus" is not part of "root" fields`)

	got = evalLine(t, sh, out, "s")
	assert.Contains(t, got, "incomplete command")

	got = evalLine(t, sh, out, "workers w1 cpu abc")
	assert.Contains(t, got, "is not an integer")

	// The session keeps working after every failure.
	assert.Equal(t, "1.2.3", evalLine(t, sh, out, "show version"))
}

func TestShellSubshellNavigation(t *testing.T) {
	sh, out := newTestShell(t)
	assert.Equal(t, "demo#", sh.Prompt())
	assert.Equal(t, []string{"Root"}, sh.Path())

	// A bare navigable node enters its subshell.
	evalLine(t, sh, out, "show")
	assert.Equal(t, "demo[show]#", sh.Prompt())
	assert.Equal(t, []string{"Root", "show"}, sh.Path())

	// Lines now resolve relative to the entered node.
	assert.Equal(t, "1.2.3", evalLine(t, sh, out, "version"))

	evalLine(t, sh, out, "exit")
	assert.Equal(t, "demo#", sh.Prompt())
	assert.Equal(t, []string{"Root"}, sh.Path())
}

func TestShellExitAtTopLevel(t *testing.T) {
	sh, out := newTestShell(t)
	got := evalLine(t, sh, out, "exit")
	assert.Equal(t, "already at top shell", got)
	assert.Equal(t, []string{"Root"}, sh.Path())
}

func TestShellTopAndPwd(t *testing.T) {
	sh, out := newTestShell(t)
	evalLine(t, sh, out, "show")
	assert.Equal(t, "Root->show", evalLine(t, sh, out, "pwd"))

	evalLine(t, sh, out, "top")
	assert.Equal(t, "Root", evalLine(t, sh, out, "pwd"))
}

func TestShellEndTerminates(t *testing.T) {
	sh, _ := newTestShell(t)
	assert.False(t, sh.Eval(context.Background(), "show version"))
	assert.True(t, sh.Eval(context.Background(), "end"))
}

func TestShellGlobalCommandHelpNoSpace(t *testing.T) {
	sh, out := newTestShell(t)

	// The help suffix works glued to the command word.
	got := evalLine(t, sh, out, "exit?")
	assert.Contains(t, got, "Exit current shell")
	assert.Equal(t, []string{"Root"}, sh.Path())

	assert.False(t, sh.Eval(context.Background(), "end?"))
	assert.Contains(t, out.String(), "Exit application")
}

func TestShellCommandWithValuesDoesNotNavigate(t *testing.T) {
	sh, out := newTestShell(t)
	// A line that collects a value executes instead of entering the
	// subshell, even though it stops at a navigable node.
	evalLine(t, sh, out, "show version")
	assert.Equal(t, []string{"Root"}, sh.Path())
}

func TestShellPipedOutput(t *testing.T) {
	sh, out := newTestShell(t)

	assert.Equal(t, "1.2.3", evalLine(t, sh, out, "show version | include 1.2"))
	assert.Equal(t, "", evalLine(t, sh, out, "show version | include nomatch"))

	got := evalLine(t, sh, out, `show inventory | jq ".hosts[0].name"`)
	assert.Equal(t, `"core-1"`, got)
}

func TestShellMultilineCapture(t *testing.T) {
	sh, err := NewShellWithConfig(testSchema(), ShellConfig{MultilineEnd: "EOF"})
	require.NoError(t, err)
	var out bytes.Buffer
	sh.SetIO(strings.NewReader("first\nsecond\nEOF\n"), &out)

	sh.Eval(context.Background(), "annotate input")
	assert.Equal(t, "first\nsecond\n", out.String())
}

func TestShellHistory(t *testing.T) {
	sh, out := newTestShell(t)
	evalLine(t, sh, out, "show version")
	evalLine(t, sh, out, "bogus")
	evalLine(t, sh, out, "   ")
	assert.Equal(t, []string{"show version", "bogus"}, sh.History())
}

func TestShellHistoryPersistence(t *testing.T) {
	sh, err := NewShellWithConfig(testSchema(), ShellConfig{HistoryFile: "/history.json"})
	require.NoError(t, err)
	fs := sh.Fs()
	var out bytes.Buffer
	sh.SetIO(strings.NewReader(""), &out)

	sh.Eval(context.Background(), "show version")
	sh.saveHistory()

	// A new shell over the same filesystem restores the lines.
	next, err := NewShellWithConfig(testSchema(), ShellConfig{HistoryFile: "/history.json"})
	require.NoError(t, err)
	next.SetFs(fs)
	next.loadHistory()
	assert.Contains(t, next.History(), "show version")
}

func TestShellEvalScript(t *testing.T) {
	sh, out := newTestShell(t)
	script := strings.Join([]string{
		"# comment lines are skipped",
		"show version",
		"",
		"mode safe",
	}, "\n")
	require.NoError(t, sh.EvalScript(context.Background(), script))
	assert.Equal(t, "1.2.3\nsafe", strings.TrimRight(out.String(), "\n"))
}

func TestShellRunInteractive(t *testing.T) {
	sh, err := NewShellWithConfig(testSchema(), ShellConfig{Prompt: "demo#"})
	require.NoError(t, err)
	var out bytes.Buffer
	sh.SetIO(strings.NewReader("show version\nend\n"), &out)

	require.NoError(t, sh.RunInteractive(context.Background()))
	assert.Contains(t, out.String(), "1.2.3")
}

func TestShellRunInteractiveEOF(t *testing.T) {
	sh, err := NewShellWithConfig(testSchema(), ShellConfig{})
	require.NoError(t, err)
	var out bytes.Buffer
	sh.SetIO(strings.NewReader("show version\n"), &out)

	// EOF on input ends the loop cleanly.
	require.NoError(t, sh.RunInteractive(context.Background()))
	assert.Contains(t, out.String(), "1.2.3")
}

func TestShellSubshellDefaultsAccumulate(t *testing.T) {
	report := NewNode("report", "")
	report.Config.Subshell = true
	report.MustAdd(
		&Field{Name: "format", Kind: KindString, Default: "text"},
		&Field{
			Name: "emit",
			Kind: KindFunc,
			Handler: func(inv *Invocation) (any, error) {
				return inv.Args["format"], nil
			},
		},
	)
	root := NewNode("root", "")
	root.MustAdd(&Field{Name: "report", Kind: KindNode, Node: report})

	sh, err := NewShell(root)
	require.NoError(t, err)
	var out bytes.Buffer
	sh.SetIO(strings.NewReader(""), &out)

	// Entering the subshell folds its defaults into the shell defaults.
	evalLine(t, sh, &out, "report")
	assert.Equal(t, "text", evalLine(t, sh, &out, "emit"))

	// Exiting drops them and restores the root-level defaults.
	evalLine(t, sh, &out, "exit")
	assert.Equal(t, []string{"Root"}, sh.Path())
}
