package modsh

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Validator converts a node's collected raw values into validated typed
// values. Implementations must either return a fully typed map or a
// *ValidationError naming every offending field; partial success is never
// applied by the engine.
type Validator interface {
	Validate(node *Node, values map[string]any) (map[string]any, error)
}

// basicValidator is the built-in validator: per-field coercion driven by the
// declared kind, enum membership checks and required-field enforcement.
type basicValidator struct{}

// NewValidator returns the default validator used when ShellConfig does not
// supply one.
func NewValidator() Validator {
	return basicValidator{}
}

func (basicValidator) Validate(node *Node, values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	var failed []FieldError
	for name, raw := range values {
		f := node.Field(name)
		if f == nil {
			// Injected defaults may name fields of enclosing nodes; pass
			// them through untouched.
			out[name] = raw
			continue
		}
		typed, err := coerceField(f, raw)
		if err != nil {
			failed = append(failed, FieldError{Field: name, Reason: err.Error()})
			continue
		}
		out[name] = typed
	}
	if len(failed) > 0 {
		return nil, &ValidationError{Node: node, Fields: failed}
	}
	return out, nil
}

// coerceField applies the field's declared kind to a raw value (a string or
// a []any of strings collected by the resolver).
func coerceField(f *Field, raw any) (any, error) {
	if list, ok := raw.([]any); ok {
		if !f.List && f.Kind != KindAny && f.Kind != KindFunc {
			return nil, fmt.Errorf("expected a single value, got %d", len(list))
		}
		vals := make([]any, 0, len(list))
		for _, item := range list {
			v, err := coerceOne(f, item)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	}
	return coerceOne(f, raw)
}

func coerceOne(f *Field, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		// Defaults and presence constants may already be typed.
		return raw, nil
	}
	switch f.Kind {
	case KindString:
		return s, nil
	case KindInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return n, nil
	case KindFloat:
		fl, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return fl, nil
	case KindBool:
		switch s {
		case "true", "True":
			return true, nil
		case "false", "False":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", s)
	case KindJSON:
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return v, nil
	case KindEnum:
		if !containsString(f.Enum, s) {
			return nil, fmt.Errorf("%q is not one of: %v", s, f.Enum)
		}
		return s, nil
	default:
		return looseCoerce(s), nil
	}
}

// looseCoerce applies the word-level heuristics used for untyped fields:
// boolean and null words, integers, floats; everything else stays a string.
func looseCoerce(s string) any {
	switch s {
	case "True", "true":
		return true
	case "False", "false":
		return false
	case "None", "null":
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// checkRequired reports required fields of the node that are present in
// neither the collected values nor the merged defaults.
func checkRequired(node *Node, kwargs map[string]any) error {
	var failed []FieldError
	for _, f := range node.Fields() {
		if !f.Required {
			continue
		}
		if _, ok := kwargs[f.Name]; !ok {
			failed = append(failed, FieldError{Field: f.Name, Reason: "required value is missing"})
		}
	}
	if len(failed) > 0 {
		return &ValidationError{Node: node, Fields: failed}
	}
	return nil
}

// NestedValues assembles a segment's validated values into the nested
// mapping the frame chain describes: nested node frames nest under their
// field name, map bridge frames nest under their literal key.
func NestedValues(seg *Segment, v Validator) (map[string]any, error) {
	data := map[string]any{}
	frames := seg.Frames
	for i := len(frames) - 1; i >= 0; i-- {
		fr := frames[i]
		if fr.IsBridge {
			data = map[string]any{fr.Param: map[string]any{fr.MapKey: data}}
			continue
		}
		typed, err := v.Validate(fr.Node, fr.rawValues())
		if err != nil {
			return nil, err
		}
		for k, val := range typed {
			if _, ok := data[k]; !ok {
				data[k] = val
			}
		}
		if fr.Param != "" && !fr.IsBridge {
			// The wrapping key is the field the frame was entered through,
			// unless a bridge frame below already supplied the map key.
			if i == 0 || !frames[i-1].IsBridge {
				data = map[string]any{fr.Param: data}
			}
		}
	}
	return data, nil
}
