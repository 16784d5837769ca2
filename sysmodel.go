package modsh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Sandbox evaluates shell scripts against an afero filesystem. File access
// goes through the filesystem handlers and command execution is restricted
// to a small builtin set, so no script can reach the host.
type Sandbox struct {
	fs  afero.Fs
	cwd string
}

// NewSandbox creates a sandbox rooted at / of the given filesystem.
func NewSandbox(fs afero.Fs) *Sandbox {
	return &Sandbox{fs: fs, cwd: "/"}
}

// Run parses and executes a script, returning its combined output.
func (sb *Sandbox) Run(ctx context.Context, script string) (string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return "", fmt.Errorf("sandbox: parse: %w", err)
	}
	var out bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(strings.NewReader(""), &out, &out),
		interp.ExecHandlers(sb.execHandler),
		interp.OpenHandler(sb.openHandler),
		interp.StatHandler(sb.statHandler),
		interp.ReadDirHandler(sb.readDirHandler),
	)
	if err != nil {
		return "", fmt.Errorf("sandbox: runner: %w", err)
	}
	if err := runner.Run(ctx, prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return out.String(), fmt.Errorf("sandbox: exit status %d", status)
		}
		return out.String(), fmt.Errorf("sandbox: %w", err)
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

// execHandler serves the builtin command set. Anything else fails as
// command-not-found instead of reaching the host.
func (sb *Sandbox) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return nil
		}
		hc := interp.HandlerCtx(ctx)
		switch args[0] {
		case "echo":
			fmt.Fprintln(hc.Stdout, strings.Join(args[1:], " "))
			return nil
		case "cat":
			return sb.cmdCat(hc, args[1:])
		case "ls":
			return sb.cmdLs(hc, args[1:])
		case "true":
			return nil
		case "false":
			return interp.NewExitStatus(1)
		default:
			fmt.Fprintf(hc.Stderr, "%s: command not found\n", args[0])
			return interp.NewExitStatus(127)
		}
	}
}

func (sb *Sandbox) cmdCat(hc interp.HandlerContext, paths []string) error {
	if len(paths) == 0 {
		_, err := io.Copy(hc.Stdout, hc.Stdin)
		return err
	}
	for _, p := range paths {
		f, err := sb.fs.Open(sb.resolvePath(p))
		if err != nil {
			fmt.Fprintf(hc.Stderr, "cat: %s: no such file or directory\n", p)
			return interp.NewExitStatus(1)
		}
		_, err = io.Copy(hc.Stdout, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (sb *Sandbox) cmdLs(hc interp.HandlerContext, paths []string) error {
	if len(paths) == 0 {
		paths = []string{sb.cwd}
	}
	for _, p := range paths {
		resolved := sb.resolvePath(p)
		info, err := sb.fs.Stat(resolved)
		if err != nil {
			fmt.Fprintf(hc.Stderr, "ls: %s: no such file or directory\n", p)
			return interp.NewExitStatus(1)
		}
		if !info.IsDir() {
			fmt.Fprintln(hc.Stdout, p)
			continue
		}
		entries, err := afero.ReadDir(sb.fs, resolved)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(hc.Stdout, e.Name())
		}
	}
	return nil
}

func (sb *Sandbox) openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	file, err := sb.fs.OpenFile(sb.resolvePath(path), flag, perm)
	if err != nil {
		return nil, err
	}
	return file.(io.ReadWriteCloser), nil
}

func (sb *Sandbox) statHandler(ctx context.Context, name string, followSymlinks bool) (os.FileInfo, error) {
	name = sb.resolvePath(name)
	if !followSymlinks {
		if lfs, ok := sb.fs.(afero.Lstater); ok {
			fi, _, err := lfs.LstatIfPossible(name)
			return fi, err
		}
	}
	return sb.fs.Stat(name)
}

func (sb *Sandbox) readDirHandler(ctx context.Context, path string) ([]os.FileInfo, error) {
	return afero.ReadDir(sb.fs, sb.resolvePath(path))
}

func (sb *Sandbox) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(sb.cwd, path))
}

// SystemModel returns a node that runs sandboxed scripts over the shell
// filesystem. The run field captures multi-line scripts through the
// multiline sentinel.
func SystemModel() *Node {
	n := NewNode("system", "Run sandboxed shell commands")
	n.MustAdd(
		&Field{
			Name:        "run",
			Kind:        KindString,
			Description: "Script to execute",
			Multiline:   true,
			WantsShell:  true,
			Handler:     runSystemScript,
		},
	)
	return n
}

func runSystemScript(inv *Invocation) (any, error) {
	script, _ := inv.Args["run"].(string)
	if script == "" {
		return nil, fmt.Errorf("system: script is required")
	}
	var fs afero.Fs = afero.NewMemMapFs()
	if inv.Shell != nil {
		fs = inv.Shell.Fs()
	}
	ctx := inv.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return NewSandbox(fs).Run(ctx, script)
}
