package modsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	n := NewNode("test", "")
	n.MustAdd(
		&Field{Name: "show", Kind: KindFunc},
		&Field{Name: "status", Kind: KindFunc},
		&Field{Name: "interface", Aliases: []string{"intf"}, Kind: KindString},
		// "s" collides with show and status but is also a field of its
		// own; exact match must win.
		&Field{Name: "s", Kind: KindFunc},
	)

	tests := []struct {
		token      string
		wantKind   MatchKind
		wantField  string
		candidates []string
	}{
		{token: "show", wantKind: MatchExact, wantField: "show"},
		{token: "s", wantKind: MatchExact, wantField: "s"},
		{token: "sh", wantKind: MatchPrefix, wantField: "show"},
		{token: "st", wantKind: MatchPrefix, wantField: "status"},
		{token: "intf", wantKind: MatchExact, wantField: "interface"},
		{token: "int", wantKind: MatchPrefix, wantField: "interface"},
		{token: "nope", wantKind: MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			m := n.Lookup(tt.token)
			assert.Equal(t, tt.wantKind, m.Kind)
			if tt.wantField != "" {
				require.NotNil(t, m.Field)
				assert.Equal(t, tt.wantField, m.Field.Name)
			}
		})
	}
}

func TestLookupAmbiguous(t *testing.T) {
	n := NewNode("test", "")
	n.MustAdd(
		&Field{Name: "show", Kind: KindFunc},
		&Field{Name: "shutdown", Kind: KindFunc},
	)
	m := n.Lookup("sh")
	assert.Equal(t, MatchAmbiguous, m.Kind)
	assert.ElementsMatch(t, []string{"show", "shutdown"}, m.Candidates)
}

func TestAddRejectsDuplicates(t *testing.T) {
	n := NewNode("test", "")
	require.NoError(t, n.Add(&Field{Name: "show"}))
	require.Error(t, n.Add(&Field{Name: "show"}))
	require.Error(t, n.Add(&Field{Name: "other", Aliases: []string{"show"}}))
	require.Error(t, n.Add(&Field{Name: ""}))
}

func TestNodeDefaults(t *testing.T) {
	n := NewNode("test", "")
	n.MustAdd(
		&Field{Name: "cpu", Kind: KindInt, Default: 1},
		&Field{Name: "name", Kind: KindString, Required: true, Default: "x"},
		&Field{Name: "action", Kind: KindFunc, Default: "noop"},
		&Field{Name: "memory", Kind: KindInt},
	)
	n.Config.Defaults = map[string]any{"region": "us-east"}

	// A required field with a declared default contributes it like any
	// other field; only func fields and defaultless fields are skipped.
	d := n.defaults()
	assert.Equal(t, map[string]any{"cpu": 1, "name": "x", "region": "us-east"}, d)
}

func TestRemoveField(t *testing.T) {
	n := NewNode("test", "")
	n.MustAdd(&Field{Name: "interface", Aliases: []string{"intf"}, Kind: KindString})

	require.True(t, n.removeField("interface"))
	assert.Nil(t, n.Field("interface"))
	assert.Nil(t, n.Field("intf"))
	assert.Empty(t, n.Fields())
	require.False(t, n.removeField("interface"))
}
