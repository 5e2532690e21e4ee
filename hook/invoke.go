package hook

import (
	"context"
	"fmt"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
)

// Event is the shared record handed to every invoke handler in one pass.
// Context points at caller-owned state; handlers mutate it in place and
// later handlers observe earlier handlers' writes.
type Event struct {
	Hook    string
	Context any
}

// InvokeFunc handles one invoke pass. A returned error hits the pass's
// error boundary unless FailOnError lifts it into the aggregate result.
type InvokeFunc func(ctx context.Context, ev *Event) error

// InvokeOption configures one Invoke pass.
type InvokeOption func(*invokeOptions)

type invokeOptions struct {
	failOnError bool
}

// FailOnError makes Invoke return an *InvokeError aggregating every
// handler failure instead of logging them. All handlers still run.
func FailOnError() InvokeOption {
	return func(o *invokeOptions) { o.failOnError = true }
}

// InvokeError aggregates the handler failures of one Invoke pass in
// invocation order.
type InvokeError struct {
	Hook   string
	Errors []error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("hook %q: %d handler(s) failed", e.Hook, len(e.Errors))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *InvokeError) Unwrap() []error { return e.Errors }

// PanicError reports a handler that panicked instead of returning.
type PanicError struct {
	HandlerID string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("hook handler %q panicked: %v", e.HandlerID, e.Value)
}

// Invoke runs name's invoke handlers sequentially in their computed order,
// sharing one Event around hookCtx. A failing handler is caught and
// logged, and the pass continues; under FailOnError the failures are
// collected and returned as one *InvokeError once every handler has run.
// A handler panic counts as a failure carrying a *PanicError. Once
// handlers leave the table before they run. Invoking a hook nobody
// registered for is a no-op.
func (r *Registry) Invoke(ctx context.Context, name string, hookCtx any, opts ...InvokeOption) error {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}

	entries := r.snapshot(name, func(e *entry) bool { return e.invoke != nil })
	if len(entries) == 0 {
		return nil
	}
	entries = orderEntries(entries)

	log := ctxlog.FromContext(ctx)
	log.Debug("Invoking hook.", "hook", name, "handlers", len(entries))

	ev := &Event{Hook: name, Context: hookCtx}
	var errs []error
	for _, e := range entries {
		if e.once {
			r.remove(name, e)
		}
		if err := safeInvoke(ctx, e, ev); err != nil {
			if o.failOnError {
				errs = append(errs, fmt.Errorf("handler %q: %w", e.id, err))
			} else {
				log.Error("Hook handler failed.",
					"hook", name, "handler", e.id, "error", err)
			}
		}
	}

	if len(errs) > 0 {
		return &InvokeError{Hook: name, Errors: errs}
	}
	return nil
}

// safeInvoke converts a handler panic into an error so the boundary treats
// both failure modes alike.
func safeInvoke(ctx context.Context, e *entry, ev *Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{HandlerID: e.id, Value: rec}
		}
	}()
	return e.invoke(ctx, ev)
}
