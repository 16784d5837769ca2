package main

import (
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/telnet2/go-practice/go-modsh"
	"github.com/telnet2/go-practice/go-modsh/api"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	flag.Parse()

	server := api.NewAPIServer(newShell)

	// Setup routes
	http.HandleFunc("/api/v1/session/create", server.HandleCreateSession)
	http.HandleFunc("/api/v1/session/list", server.HandleListSessions)
	http.HandleFunc("/api/v1/session/remove", server.HandleRemoveSession)
	http.HandleFunc("/api/v1/session/repl", server.HandleREPL)

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Starting API server on %s", addr)
	log.Printf("API Endpoints:")
	log.Printf("  POST /api/v1/session/create  - Create new session")
	log.Printf("  POST /api/v1/session/list    - List all sessions")
	log.Printf("  POST /api/v1/session/remove  - Remove a session")
	log.Printf("  WS   /api/v1/session/repl    - JSON-RPC WebSocket REPL")
	log.Printf("  GET  /health                  - Health check")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newShell builds the schema served to every session: read commands piped
// through the common pipe functions plus a sandboxed system node.
func newShell() (*modsh.Shell, error) {
	pipes := modsh.PipeFunctions()

	show := modsh.NewNode("show", "Show server information")
	show.Config.Subshell = true
	show.Config.Pipe = pipes
	show.MustAdd(
		&modsh.Field{
			Name:        "version",
			Kind:        modsh.KindFunc,
			Description: "Show software version",
			Handler: func(inv *modsh.Invocation) (any, error) {
				return "modsh-api 0.1.0 " + runtime.Version(), nil
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
	)

	root := modsh.NewNode("root", "API command shell")
	root.Config.Pipe = pipes
	root.MustAdd(
		&modsh.Field{Name: "show", Kind: modsh.KindNode, Description: "Show server information", Node: show},
		&modsh.Field{Name: "system", Kind: modsh.KindNode, Description: "Run sandboxed shell commands", Node: modsh.SystemModel()},
	)

	return modsh.NewShell(root)
}
