package modsh

import (
	"fmt"
	"sort"
	"strings"
)

// Kind describes what a field resolves to during a command walk.
type Kind int

const (
	// KindString through KindJSON are leaf kinds: the field collects value
	// tokens from the command line.
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	// KindAny leaves type coercion to the validator heuristics.
	KindAny
	// KindJSON keeps the raw token untouched so the validator can hand it
	// to a JSON decoder as-is.
	KindJSON
	// KindEnum restricts collected values to a fixed option set.
	KindEnum
	// KindFunc is a leaf that names an executable command; it may still
	// collect value tokens which become arguments of the call.
	KindFunc
	// KindNode descends into a nested schema node.
	KindNode
	// KindMap descends into a nested schema node through a literal map key
	// taken from the next token.
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindAny:
		return "any"
	case KindJSON:
		return "json"
	case KindEnum:
		return "enum"
	case KindFunc:
		return "func"
	case KindNode:
		return "node"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsLeaf reports whether the field collects value tokens instead of
// descending into a nested node.
func (k Kind) IsLeaf() bool {
	return k != KindNode && k != KindMap
}

// Field is a named, typed slot on a Node.
type Field struct {
	Name        string
	Description string
	Aliases     []string
	Kind        Kind

	// Default is merged into the call arguments when the field is not
	// referenced on the command line. Required fields with no default must
	// be given a value before the deepest node of a segment executes.
	Default  any
	Required bool

	// List permits multiple value tokens; collected values become a slice.
	List bool

	// Presence is the value assigned when the field is referenced with no
	// following value token. Nil means no presence handling.
	Presence any

	// Multiline enables the multi-line capture sentinel for this field.
	Multiline bool

	// Enum holds the permitted values for KindEnum fields.
	Enum []string

	// Source supplies completion candidates for the field's value.
	Source func() []string

	// Node is the nested schema for KindNode and the map value schema for
	// KindMap fields.
	Node *Node

	// KeyName and KeyDescription label the literal map key of KindMap
	// fields in help output.
	KeyName        string
	KeyDescription string

	// Handler executes the command when this is the last matched field of
	// a segment. Takes priority over the owning node's Run handler.
	Handler Handler

	// Outputter and Processors apply to results produced through this
	// field, see the output selection precedence in output.go.
	Outputter        Outputter
	OutputterOptions map[string]any
	Processors       []Processor

	// Context injection flags: when set the dispatcher fills the matching
	// Invocation members for this field's handler.
	WantsRoot   bool
	WantsShell  bool
	WantsFrames bool
}

// matches reports whether token equals the field name or one of its aliases.
func (f *Field) matches(token string) bool {
	if token == f.Name {
		return true
	}
	for _, a := range f.Aliases {
		if token == a {
			return true
		}
	}
	return false
}

// prefixOf returns the first of the field's names that the token is a strict
// prefix of, or "" when none match.
func (f *Field) prefixOf(token string) string {
	if strings.HasPrefix(f.Name, token) {
		return f.Name
	}
	for _, a := range f.Aliases {
		if strings.HasPrefix(a, token) {
			return a
		}
	}
	return ""
}

// DisplayName returns the name shown in help output: the first alias when
// one is declared, the canonical name otherwise.
func (f *Field) DisplayName() string {
	if len(f.Aliases) > 0 {
		return f.Aliases[0]
	}
	return f.Name
}

// NodeConfig carries the per-node execution configuration.
type NodeConfig struct {
	// Subshell marks the node navigable: resolving a line that stops at
	// this node with no collected values enters it as a subshell.
	Subshell bool

	// Prompt replaces the shell prompt while this node is the active
	// subshell.
	Prompt string

	// Defaults are merged into the call arguments of every segment whose
	// path crosses this node, below collected values in priority.
	Defaults map[string]any

	// Outputter renders results of this node when neither the handler
	// result nor the matched field selects one.
	Outputter        Outputter
	OutputterOptions map[string]any

	// Processors run on segment 0 results after field-level processors.
	Processors []Processor

	// Pipe is the node that handles segments after a "|" token. PipeSelf
	// reuses the node itself as the pipe target.
	Pipe     *Node
	PipeSelf bool

	// NoAncestorFallback stops the dispatcher from walking parent frames
	// for a Run handler when this node has none.
	NoAncestorFallback bool
}

// Node is a record-shaped schema unit in the resolution tree.
type Node struct {
	Name        string
	Description string

	// Run is the node's self handler, invoked when a segment terminates at
	// this node and the last matched field declares no handler of its own.
	Run Handler

	Config NodeConfig

	fields []*Field
	index  map[string]*Field
}

// NewNode creates an empty schema node.
func NewNode(name, description string) *Node {
	return &Node{
		Name:        name,
		Description: description,
		index:       map[string]*Field{},
	}
}

// Add registers fields on the node. Field names and aliases must be unique
// within the node.
func (n *Node) Add(fields ...*Field) error {
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("node %q: field with empty name", n.Name)
		}
		names := append([]string{f.Name}, f.Aliases...)
		for _, name := range names {
			if _, ok := n.index[name]; ok {
				return fmt.Errorf("node %q: duplicate field name %q", n.Name, name)
			}
		}
		for _, name := range names {
			n.index[name] = f
		}
		n.fields = append(n.fields, f)
	}
	return nil
}

// MustAdd is Add for statically assembled schemas; it panics on conflicts.
func (n *Node) MustAdd(fields ...*Field) *Node {
	if err := n.Add(fields...); err != nil {
		panic(err)
	}
	return n
}

// Fields returns the declared fields in registration order.
func (n *Node) Fields() []*Field {
	return n.fields
}

// Field returns the field registered under the given name or alias.
func (n *Node) Field(name string) *Field {
	return n.index[name]
}

// FieldNames returns the display names of all declared fields, sorted.
func (n *Node) FieldNames() []string {
	names := make([]string, 0, len(n.fields))
	for _, f := range n.fields {
		names = append(names, f.DisplayName())
	}
	sort.Strings(names)
	return names
}

// removeField drops the field registered under name, together with its
// aliases. Reports whether a field was removed.
func (n *Node) removeField(name string) bool {
	f, ok := n.index[name]
	if !ok {
		return false
	}
	delete(n.index, f.Name)
	for _, a := range f.Aliases {
		delete(n.index, a)
	}
	for i, cur := range n.fields {
		if cur == f {
			n.fields = append(n.fields[:i], n.fields[i+1:]...)
			break
		}
	}
	return true
}

// MatchKind classifies a Lookup outcome.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchPrefix
	MatchAmbiguous
)

// Match is the result of resolving one token against a node's fields.
type Match struct {
	Kind  MatchKind
	Field *Field
	// Candidates lists the full names competing for an ambiguous prefix.
	Candidates []string
}

// Lookup resolves a token against the node's field names and aliases.
// An exact match always wins over any prefix match; a prefix matching a
// single field resolves to that field, a prefix matching several yields
// MatchAmbiguous with the competing full names.
func (n *Node) Lookup(token string) Match {
	if f, ok := n.index[token]; ok {
		return Match{Kind: MatchExact, Field: f}
	}
	var candidates []string
	var matched []*Field
	for _, f := range n.fields {
		if name := f.prefixOf(token); name != "" {
			matched = append(matched, f)
			candidates = append(candidates, name)
		}
	}
	switch len(matched) {
	case 0:
		return Match{Kind: MatchNone}
	case 1:
		return Match{Kind: MatchPrefix, Field: matched[0]}
	default:
		return Match{Kind: MatchAmbiguous, Candidates: candidates}
	}
}

// defaults collects the node's default values: every leaf field with a
// non-nil default, required or not, overlaid with the config-level defaults
// map. A required field with a default is satisfied by it.
func (n *Node) defaults() map[string]any {
	out := map[string]any{}
	for _, f := range n.fields {
		if f.Default == nil {
			continue
		}
		if !f.Kind.IsLeaf() || f.Kind == KindFunc {
			continue
		}
		out[f.Name] = f.Default
	}
	for k, v := range n.Config.Defaults {
		out[k] = v
	}
	return out
}

// pipeTarget returns the node handling segments after a pipe token, or nil
// when the node does not support piping.
func (n *Node) pipeTarget() *Node {
	if n.Config.PipeSelf {
		return n
	}
	return n.Config.Pipe
}
