// Package client provides a Go SDK for the command shell API service:
// session management over HTTP and line evaluation over a WebSocket
// JSON-RPC connection.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Options configures the client.
type Options struct {
	// BaseURL is the server URL (e.g., "http://localhost:8080")
	BaseURL string
	// Timeout for HTTP requests (default: 30s)
	Timeout time.Duration
}

// SessionInfo describes a server-side session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	Prompt    string    `json:"prompt"`
	Path      []string  `json:"path"`
}

// EvalResult is the outcome of evaluating one line.
type EvalResult struct {
	Output []string `json:"output"`
	Prompt string   `json:"prompt"`
	Path   []string `json:"path"`
	Done   bool     `json:"done"`
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int64  `json:"id"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// Client talks to the shell API service.
type Client struct {
	options    Options
	httpClient *http.Client
	ws         *websocket.Conn
	wsMu       sync.Mutex
	requestID  int64
}

// New creates a client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		options:    opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// CreateSession creates a new shell session on the server.
func (c *Client) CreateSession() (*SessionInfo, error) {
	var resp struct {
		Session SessionInfo `json:"session"`
	}
	if err := c.post("/api/v1/session/create", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// ListSessions lists the active sessions on the server.
func (c *Client) ListSessions() ([]SessionInfo, error) {
	var resp struct {
		Sessions []SessionInfo `json:"sessions"`
	}
	if err := c.post("/api/v1/session/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// RemoveSession removes a session by ID.
func (c *Client) RemoveSession(sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.post("/api/v1/session/remove", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("remove session: %s", resp.Message)
	}
	return nil
}

func (c *Client) post(path string, body any, into any) error {
	raw := []byte("{}")
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	resp, err := c.httpClient.Post(c.options.BaseURL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

// Connect opens the WebSocket REPL connection. Call before Eval.
func (c *Client) Connect() error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws != nil {
		return nil
	}
	u, err := url.Parse(c.options.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/v1/session/repl"
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.ws = conn
	return nil
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return nil
	}
	err := c.ws.Close()
	c.ws = nil
	return err
}

// Eval evaluates one command line in the given session over the REPL
// connection.
func (c *Client) Eval(sessionID, line string) (*EvalResult, error) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return nil, fmt.Errorf("not connected, call Connect first")
	}

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  "shell.eval",
		Params: map[string]string{
			"session_id": sessionID,
			"line":       line,
		},
		ID: atomic.AddInt64(&c.requestID, 1),
	}
	if err := c.ws.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp jsonrpcResponse
	if err := c.ws.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	var result EvalResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}
