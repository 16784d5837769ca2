package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telnet2/go-practice/go-modsh"
)

func testFactory() (*modsh.Shell, error) {
	root := modsh.NewNode("root", "")
	root.MustAdd(&modsh.Field{
		Name:        "version",
		Kind:        modsh.KindFunc,
		Description: "Show version",
		Handler: func(inv *modsh.Invocation) (any, error) {
			return "1.2.3", nil
		},
	})
	return modsh.NewShellWithConfig(root, modsh.ShellConfig{Prompt: "api#"})
}

func TestSessionLifecycle(t *testing.T) {
	sm := NewSessionManager(testFactory)

	session, err := sm.CreateSession()
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	got, err := sm.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session, got)

	assert.Len(t, sm.ListSessions(), 1)

	require.NoError(t, sm.RemoveSession(session.ID))
	_, err = sm.GetSession(session.ID)
	require.Error(t, err)
	require.Error(t, sm.RemoveSession(session.ID))
}

func TestSessionEvalLine(t *testing.T) {
	sm := NewSessionManager(testFactory)
	session, err := sm.CreateSession()
	require.NoError(t, err)

	output, prompt, path, done := session.EvalLine(context.Background(), "version")
	assert.Equal(t, []string{"1.2.3"}, output)
	assert.Equal(t, "api#", prompt)
	assert.Equal(t, []string{"Root"}, path)
	assert.False(t, done)

	_, _, _, done = session.EvalLine(context.Background(), "end")
	assert.True(t, done)
}

func rpcRequest(t *testing.T, method string, params any) *JSONRPCRequest {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return &JSONRPCRequest{JSONRPC: "2.0", Method: method, Params: raw, ID: 1}
}

func TestHandleJSONRPCEval(t *testing.T) {
	sm := NewSessionManager(testFactory)
	session, err := sm.CreateSession()
	require.NoError(t, err)

	req := rpcRequest(t, "shell.eval", EvalParams{SessionID: session.ID, Line: "version"})
	resp := HandleJSONRPC(context.Background(), sm, req)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*EvalResult)
	require.True(t, ok)
	assert.Equal(t, []string{"1.2.3"}, result.Output)
	assert.False(t, result.Done)
}

func TestHandleJSONRPCErrors(t *testing.T) {
	sm := NewSessionManager(testFactory)

	resp := HandleJSONRPC(context.Background(), sm, &JSONRPCRequest{JSONRPC: "1.0", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)

	resp = HandleJSONRPC(context.Background(), sm, &JSONRPCRequest{JSONRPC: "2.0", Method: "shell.unknown", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)

	req := rpcRequest(t, "shell.eval", EvalParams{SessionID: "", Line: "version"})
	resp = HandleJSONRPC(context.Background(), sm, req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)

	req = rpcRequest(t, "shell.eval", EvalParams{SessionID: "nope", Line: "version"})
	resp = HandleJSONRPC(context.Background(), sm, req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}
