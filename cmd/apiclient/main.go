package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/telnet2/go-practice/go-modsh/client"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "API server URL")
	flag.Parse()

	c := client.New(client.Options{BaseURL: *serverURL})

	fmt.Println("Creating new session...")
	session, err := c.CreateSession()
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	fmt.Printf("Session created: %s\n", session.ID)

	if err := c.Connect(); err != nil {
		log.Fatalf("Failed to connect to REPL: %v", err)
	}
	defer c.Close()

	fmt.Println("Connected. Type 'end' or press Ctrl+D to exit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	prompt := session.Prompt
	for {
		fmt.Printf("%s ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		result, err := c.Eval(session.ID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		for _, out := range result.Output {
			fmt.Println(out)
		}
		prompt = result.Prompt
		if result.Done {
			break
		}
	}

	if err := c.RemoveSession(session.ID); err != nil {
		log.Printf("Failed to remove session: %v", err)
	}
}
