package main

import (
	"context"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"github.com/telnet2/go-practice/go-modsh"
)

func main() {
	command := flag.StringP("command", "c", "", "Evaluate a single command line and exit")
	fileArg := flag.StringP("file", "f", "", "Evaluate command lines from a file and exit")
	flag.Parse()

	sh, err := modsh.NewShellWithConfig(buildSchema(), modsh.ShellConfig{
		Prompt: "modsh#",
		Intro:  "Welcome to modsh. Append ? to any command for help.",
	})
	if err != nil {
		log.Fatalf("Failed to create shell: %v", err)
	}
	sh.SetFs(afero.NewOsFs())

	ctx := context.Background()

	if *command != "" {
		sh.Eval(ctx, *command)
		return
	}

	if *fileArg != "" {
		content, err := os.ReadFile(*fileArg)
		if err != nil {
			log.Fatalf("Failed to read script: %v", err)
		}
		if err := sh.EvalScript(ctx, string(content)); err != nil {
			log.Fatalf("Script evaluation failed: %v", err)
		}
		return
	}

	if err := sh.RunInteractive(ctx); err != nil {
		log.Fatalf("Interactive mode failed: %v", err)
	}
}

// buildSchema assembles the demo command tree: a show subshell with piped
// read commands, a workers map with per-worker actions, and a sandboxed
// system node.
func buildSchema() *modsh.Node {
	pipes := modsh.PipeFunctions()

	show := modsh.NewNode("show", "Show system information")
	show.Config.Subshell = true
	show.Config.Prompt = "modsh[show]#"
	show.Config.Pipe = pipes
	show.MustAdd(
		&modsh.Field{
			Name:        "version",
			Kind:        modsh.KindFunc,
			Description: "Show software version",
			Handler: func(inv *modsh.Invocation) (any, error) {
				return "modsh 0.1.0 " + runtime.Version(), nil
			},
		},
		&modsh.Field{
			Name:        "clock",
			Kind:        modsh.KindFunc,
			Description: "Show current time",
			Handler: func(inv *modsh.Invocation) (any, error) {
				return time.Now().Format(time.RFC3339), nil
			},
		},
		&modsh.Field{
			Name:        "inventory",
			Kind:        modsh.KindFunc,
			Description: "Show host inventory",
			Outputter:   modsh.OutputterJSON,
			Handler: func(inv *modsh.Invocation) (any, error) {
				return map[string]any{
					"hosts": []map[string]any{
						{"name": "core-1", "platform": "linux", "cpus": 8},
						{"name": "core-2", "platform": "linux", "cpus": 16},
					},
				}, nil
			},
		},
	)

	worker := modsh.NewNode("worker", "Worker configuration")
	worker.MustAdd(
		&modsh.Field{Name: "cpu", Kind: modsh.KindInt, Description: "CPU share", Default: 1},
		&modsh.Field{Name: "memory", Kind: modsh.KindInt, Description: "Memory limit in MB", Default: 256},
		&modsh.Field{Name: "active", Kind: modsh.KindBool, Description: "Activate worker", Presence: true, Default: false},
	)
	worker.Run = func(inv *modsh.Invocation) (any, error) {
		return inv.Args, nil
	}

	status := modsh.NewNode("status", "Report engine status")
	status.MustAdd(
		&modsh.Field{Name: "detailed", Kind: modsh.KindBool, Description: "Include details", Presence: true, Default: false},
	)
	status.Run = func(inv *modsh.Invocation) (any, error) {
		out := map[string]any{"state": "running"}
		if detailed, _ := inv.Args["detailed"].(bool); detailed {
			out["goroutines"] = runtime.NumGoroutine()
			out["go"] = runtime.Version()
		}
		return out, nil
	}

	root := modsh.NewNode("root", "Demo command shell")
	root.Config.Pipe = pipes
	root.MustAdd(
		&modsh.Field{Name: "show", Kind: modsh.KindNode, Description: "Show system information", Node: show},
		&modsh.Field{Name: "status", Kind: modsh.KindNode, Description: "Report engine status", Node: status},
		&modsh.Field{
			Name:           "workers",
			Kind:           modsh.KindMap,
			Description:    "Configure named workers",
			KeyName:        "name",
			KeyDescription: "Worker name",
			Node:           worker,
		},
	)

	root.MustAdd(&modsh.Field{
		Name:        "system",
		Kind:        modsh.KindNode,
		Description: "Run sandboxed shell commands",
		Node:        modsh.SystemModel(),
	})

	return root
}
