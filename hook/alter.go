package hook

import (
	"context"
	"fmt"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
)

// AlterFunc transforms the value threaded through an alter pass. Returning
// nil keeps the previous value, which supports handlers that mutate maps
// or slices in place instead of rebuilding them.
type AlterFunc func(ctx context.Context, value any) (any, error)

// AlterOption configures one Alter pass.
type AlterOption func(*alterOptions)

type alterOptions struct {
	immutable bool
}

// Immutable hands each handler a private deep copy of the current value,
// so in-place mutations never reach siblings or the caller's input. Only
// a returned value threads forward; a handler that mutates its copy and
// returns nil produces nothing, and the chain keeps the prior value. The
// copy follows JSON shapes: map[string]any and []any clone recursively,
// everything else copies by assignment.
func Immutable() AlterOption {
	return func(o *alterOptions) { o.immutable = true }
}

// Alter threads value through name's alter handlers in their computed
// order and returns the final value. There is no error boundary: the
// first handler error stops the pass and is returned wrapped. Zero
// handlers return the input unchanged. Once handlers leave the table
// before they run.
func (r *Registry) Alter(ctx context.Context, name string, value any, opts ...AlterOption) (any, error) {
	var o alterOptions
	for _, opt := range opts {
		opt(&o)
	}

	entries := r.snapshot(name, func(e *entry) bool { return e.alter != nil })
	if len(entries) == 0 {
		return value, nil
	}
	entries = orderEntries(entries)

	ctxlog.FromContext(ctx).Debug("Altering value.",
		"hook", name, "handlers", len(entries))

	current := value
	for _, e := range entries {
		if e.once {
			r.remove(name, e)
		}
		in := current
		if o.immutable {
			in = clone(current)
		}
		next, err := e.alter(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("hook %q: handler %q: %w", name, e.id, err)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

// clone copies JSON-shaped values recursively. Anything that is not a
// map[string]any or []any is returned as is.
func clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}
