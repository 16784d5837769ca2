package modsh

import (
	"context"
	"strings"
)

// HandlerSource names one place the dispatcher may find an executable for a
// segment. The lookup order is configurable through ShellConfig.
type HandlerSource int

const (
	// SourceField is the handler declared on the last matched field.
	SourceField HandlerSource = iota
	// SourceNode is the Run handler of the segment's deepest node.
	SourceNode
	// SourceAncestor walks the frame chain upward for the first enclosing
	// node with a Run handler, unless the deepest node forbids fallback.
	SourceAncestor
)

// DefaultHandlerOrder is the field-first dispatch priority.
var DefaultHandlerOrder = []HandlerSource{SourceField, SourceNode, SourceAncestor}

// Invocation carries everything a handler receives for one segment call.
type Invocation struct {
	Ctx context.Context

	// Args are the validated keyword values: process defaults, node
	// defaults along the path, then explicitly collected values.
	Args map[string]any

	// Prev is the previous pipe segment's result; HasPrev distinguishes a
	// nil result from segment 0.
	Prev    any
	HasPrev bool

	// Root, Shell and Frames are context injections, populated only when
	// the handler's field requests them. NestedArgs accompanies Frames: the
	// segment's validated values assembled into the nested mapping the
	// frame chain describes, map keys included.
	Root       *Node
	Shell      *Shell
	Frames     []*Frame
	NestedArgs map[string]any
}

// Handler executes a resolved command segment.
type Handler func(inv *Invocation) (any, error)

// resolveHandler finds the executable for a segment following the
// configured priority order.
func resolveHandler(seg *Segment, order []HandlerSource) (Handler, *Field) {
	deep := seg.deepest()
	for _, src := range order {
		switch src {
		case SourceField:
			if fv := seg.lastField(); fv != nil && fv.Field.Handler != nil {
				return fv.Field.Handler, fv.Field
			}
		case SourceNode:
			if deep.Node.Run != nil {
				return deep.Node.Run, nil
			}
		case SourceAncestor:
			if deep.Node.Config.NoAncestorFallback {
				continue
			}
			for i := len(seg.Frames) - 1; i >= 0; i-- {
				fr := seg.Frames[i]
				if fr.IsBridge || fr == deep {
					continue
				}
				if fr.Node.Run != nil {
					return fr.Node.Run, nil
				}
			}
		}
	}
	return nil, nil
}

// execute validates and dispatches every segment of a resolution, chaining
// results left to right, and returns the final value with its renderer.
func (s *Shell) execute(ctx context.Context, res *Resolution) (any, Outputter, map[string]any, error) {
	var result any
	for i, seg := range res.Segments {
		deep := seg.deepest()

		// Shell-accumulated defaults apply to the command segment only;
		// node-level defaults apply to every segment on the path.
		kwargs := map[string]any{}
		if i == 0 {
			for k, v := range s.defaults {
				kwargs[k] = v
			}
		}
		for _, fr := range seg.Frames {
			for k, v := range fr.Defaults {
				kwargs[k] = v
			}
		}
		for _, fr := range seg.Frames {
			if fr.IsBridge {
				continue
			}
			typed, err := s.validator.Validate(fr.Node, fr.rawValues())
			if err != nil {
				return nil, nil, nil, err
			}
			for k, v := range typed {
				kwargs[k] = v
			}
		}
		if err := checkRequired(deep.Node, kwargs); err != nil {
			return nil, nil, nil, err
		}

		handler, hField := resolveHandler(seg, s.config.HandlerOrder)
		if handler == nil {
			return nil, nil, nil, &DispatchError{Node: deep.Node}
		}

		inv := &Invocation{Ctx: ctx, Args: kwargs}
		if i > 0 {
			inv.Prev = untag(result)
			inv.HasPrev = true
		}
		if hField != nil {
			if hField.WantsRoot {
				inv.Root = s.root
			}
			if hField.WantsShell {
				inv.Shell = s
			}
			if hField.WantsFrames {
				inv.Frames = seg.Frames
				nested, err := NestedValues(seg, s.validator)
				if err != nil {
					return nil, nil, nil, err
				}
				inv.NestedArgs = nested
			}
		}

		s.log.Debug().Str("command", segmentPath(seg)).Int("segment", i).Msg("dispatching")
		ret, err := handler(inv)
		if err != nil {
			return nil, nil, nil, &ExecError{Command: segmentPath(seg), Err: err}
		}

		if fv := seg.lastField(); fv != nil {
			ret, err = applyProcessors(ret, fv.Field.Processors)
			if err != nil {
				return nil, nil, nil, &ExecError{Command: segmentPath(seg), Err: err}
			}
		}
		if i == 0 {
			ret, err = applyProcessors(ret, deep.Node.Config.Processors)
			if err != nil {
				return nil, nil, nil, &ExecError{Command: segmentPath(seg), Err: err}
			}
		}
		result = ret
	}

	value, out, opts := selectOutput(res, result)
	return value, out, opts, nil
}

// applyProcessors runs processors in declared order, keeping an outputter
// tag on the value intact.
func applyProcessors(v any, procs []Processor) (any, error) {
	if len(procs) == 0 {
		return v, nil
	}
	tagged, isTagged := v.(Result)
	val := v
	if isTagged {
		val = tagged.Value
	}
	for _, p := range procs {
		next, err := p(val)
		if err != nil {
			return nil, err
		}
		val = next
	}
	if isTagged {
		tagged.Value = val
		return tagged, nil
	}
	return val, nil
}

// segmentPath renders a segment's resolved path for log and error messages.
func segmentPath(seg *Segment) string {
	var parts []string
	for _, fr := range seg.Frames {
		if fr.IsBridge {
			continue
		}
		if fr.Param != "" {
			parts = append(parts, fr.Param)
		}
		if fr.MapKey != "" {
			parts = append(parts, fr.MapKey)
		}
	}
	if fvs := seg.deepest().Fields; len(fvs) > 0 {
		parts = append(parts, fvs[len(fvs)-1].Field.Name)
	}
	if len(parts) == 0 && len(seg.Frames) > 0 {
		return seg.Frames[0].Node.Name
	}
	return strings.Join(parts, " ")
}
