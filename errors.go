package modsh

import (
	"fmt"
	"strings"
)

// TokenizeError reports a malformed command line: an unterminated quote or
// an unbalanced bracket span. Fatal to the current line only.
type TokenizeError struct {
	Reason string
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// UnknownTokenError reports a token that matched no field, not even as a
// prefix, at the current node.
type UnknownTokenError struct {
	Node        *Node
	Token       string
	Suggestions []string
}

func (e *UnknownTokenError) Error() string {
	msg := fmt.Sprintf("incorrect command, %q is not part of %q fields", e.Token, e.Node.Name)
	if len(e.Suggestions) > 0 {
		msg += ", valid options: " + strings.Join(e.Suggestions, ", ")
	}
	return msg
}

// AmbiguousTokenError reports a prefix token matching two or more fields.
type AmbiguousTokenError struct {
	Node       *Node
	Token      string
	Candidates []string
}

func (e *AmbiguousTokenError) Error() string {
	return fmt.Sprintf("incomplete command, possible completions: %s", strings.Join(e.Candidates, ", "))
}

// PipeError reports a "|" token at a node with no pipe target configured.
type PipeError struct {
	Node *Node
}

func (e *PipeError) Error() string {
	return fmt.Sprintf("%q does not support pipe handling", e.Node.Name)
}

// FieldError is one validation failure: field name plus reason.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError aggregates per-field validation failures for one node.
// The engine reports every entry and invokes no handler.
type ValidationError struct {
	Node   *Node
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return fmt.Sprintf("invalid input for %q: %s", e.Node.Name, strings.Join(parts, "; "))
}

// DispatchError reports a segment that resolved fine but has no executable:
// no field handler, no node Run handler, no eligible ancestor handler.
type DispatchError struct {
	Node *Node
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("no executable found for this command, %q defines no handler", e.Node.Name)
}

// ExecError wraps a domain failure raised by a handler. It is reported to
// the user and never corrupts shell state.
type ExecError struct {
	Command string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
