package api

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      interface{}   `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// EvalParams carries the shell.eval parameters.
type EvalParams struct {
	SessionID string `json:"session_id"`
	Line      string `json:"line"`
}

// EvalResult is the outcome of evaluating one line.
type EvalResult struct {
	Output []string `json:"output"`
	Prompt string   `json:"prompt"`
	Path   []string `json:"path"`
	Done   bool     `json:"done"`
}

// Error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// HandleJSONRPC processes a JSON-RPC request
func HandleJSONRPC(ctx context.Context, sm *SessionManager, request *JSONRPCRequest) *JSONRPCResponse {
	response := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      request.ID,
	}

	// Validate JSON-RPC version
	if request.JSONRPC != "2.0" {
		response.Error = &JSONRPCError{
			Code:    InvalidRequest,
			Message: "Invalid JSON-RPC version",
		}
		return response
	}

	// Handle methods
	switch request.Method {
	case "shell.eval":
		result, err := handleEval(ctx, sm, request.Params)
		if err != nil {
			response.Error = err
		} else {
			response.Result = result
		}

	default:
		response.Error = &JSONRPCError{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", request.Method),
		}
	}

	return response
}

// handleEval handles the shell.eval method
func handleEval(ctx context.Context, sm *SessionManager, params json.RawMessage) (*EvalResult, *JSONRPCError) {
	var evalParams EvalParams
	if err := json.Unmarshal(params, &evalParams); err != nil {
		return nil, &JSONRPCError{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	if evalParams.SessionID == "" {
		return nil, &JSONRPCError{
			Code:    InvalidParams,
			Message: "session_id is required",
		}
	}

	if evalParams.Line == "" {
		return nil, &JSONRPCError{
			Code:    InvalidParams,
			Message: "line is required",
		}
	}

	session, err := sm.GetSession(evalParams.SessionID)
	if err != nil {
		return nil, &JSONRPCError{
			Code:    InvalidParams,
			Message: "Invalid session",
			Data:    err.Error(),
		}
	}

	output, prompt, path, done := session.EvalLine(ctx, evalParams.Line)

	return &EvalResult{
		Output: output,
		Prompt: prompt,
		Path:   path,
		Done:   done,
	}, nil
}
