package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telnet2/go-practice/go-modsh"
	"github.com/telnet2/go-practice/go-modsh/api"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := api.NewAPIServer(func() (*modsh.Shell, error) {
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
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/session/create", server.HandleCreateSession)
	mux.HandleFunc("/api/v1/session/list", server.HandleListSessions)
	mux.HandleFunc("/api/v1/session/remove", server.HandleRemoveSession)
	mux.HandleFunc("/api/v1/session/repl", server.HandleREPL)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientSessionLifecycle(t *testing.T) {
	ts := startTestServer(t)
	c := New(Options{BaseURL: ts.URL})

	session, err := c.CreateSession()
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "api#", session.Prompt)

	sessions, err := c.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)

	require.NoError(t, c.RemoveSession(session.ID))
	sessions, err = c.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	require.Error(t, c.RemoveSession(session.ID))
}

func TestClientEval(t *testing.T) {
	ts := startTestServer(t)
	c := New(Options{BaseURL: ts.URL})

	session, err := c.CreateSession()
	require.NoError(t, err)

	require.NoError(t, c.Connect())
	defer c.Close()

	result, err := c.Eval(session.ID, "version")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3"}, result.Output)
	assert.Equal(t, "api#", result.Prompt)
	assert.False(t, result.Done)

	result, err = c.Eval(session.ID, "end")
	require.NoError(t, err)
	assert.True(t, result.Done)
}

func TestClientEvalRequiresConnect(t *testing.T) {
	c := New(Options{BaseURL: "http://localhost:1"})
	_, err := c.Eval("id", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestClientEvalUnknownSession(t *testing.T) {
	ts := startTestServer(t)
	c := New(Options{BaseURL: ts.URL})
	require.NoError(t, c.Connect())
	defer c.Close()

	_, err := c.Eval("missing", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc error")
}
