package deferred

import (
	"context"
	"sort"
	"sync"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
)

// Signal names emitted through the optional Notifier.
const (
	SignalStarted   = "deferred:started"
	SignalCompleted = "deferred:completed"
	SignalFailed    = "deferred:failed"
)

// Notifier receives the registry's lifecycle signals. *signal.Bus satisfies
// it; the registry works without one.
type Notifier interface {
	Emit(ctx context.Context, name string, payload any) error
}

// Event is the payload attached to the lifecycle signals.
type Event struct {
	Key    string
	Status Status
	Value  any
	Err    error
}

// ExecFunc produces the value for a queued entry.
type ExecFunc func(ctx context.Context) (any, error)

// Option configures a Registry.
type Option func(*Registry)

// WithNotifier wires lifecycle signal emission. Emission failures are
// logged and never affect settlement.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

// Registry tracks named futures. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Future
	notifier Notifier
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*Future),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Future returns the future for key, lazily creating a pending entry. It is
// safe to call before any producer exists.
func (r *Registry) Future(key string) *Future {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.entries[key]
	if !ok {
		f = newFuture(key)
		r.entries[key] = f
	}
	return f
}

// Await is shorthand for Future(key).Await(ctx).
func (r *Registry) Await(ctx context.Context, key string) (any, error) {
	return r.Future(key).Await(ctx)
}

// Queue starts fn for key if the entry is still pending and returns the
// entry's future. When the entry is already running or settled, Queue is a
// no-op returning the existing future, so the work for one key runs exactly
// once no matter how many callers queue it. fn runs on its own goroutine;
// its return settles the entry, and a panic inside it settles the entry as
// failed with an ExecPanicError.
func (r *Registry) Queue(ctx context.Context, key string, fn ExecFunc) *Future {
	f := r.Future(key)
	if !f.markRunning() {
		ctxlog.FromContext(ctx).Debug("Deferred work already queued or settled.",
			"key", key, "status", f.Status())
		return f
	}

	r.notify(ctx, SignalStarted, Event{Key: key, Status: StatusRunning})
	go r.run(ctx, f, fn)
	return f
}

func (r *Registry) run(ctx context.Context, f *Future, fn ExecFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &ExecPanicError{Key: f.key, Value: rec}
			if f.fail(err) {
				ctxlog.FromContext(ctx).Error("Deferred executor panicked.",
					"key", f.key, "panic", rec)
				r.notify(ctx, SignalFailed, Event{Key: f.key, Status: StatusFailed, Err: err})
			}
		}
	}()

	value, err := fn(ctx)
	if err != nil {
		// An external Resolve/Reject may have settled the entry first; the
		// loser of that race stays silent.
		if f.fail(err) {
			r.notify(ctx, SignalFailed, Event{Key: f.key, Status: StatusFailed, Err: err})
		}
		return
	}
	if f.complete(value) {
		r.notify(ctx, SignalCompleted, Event{Key: f.key, Status: StatusCompleted, Value: value})
	}
}

// Resolve settles key with a value, creating the entry when none exists
// yet. It reports whether the settlement took effect; a completed or failed
// entry returns false.
func (r *Registry) Resolve(ctx context.Context, key string, value any) bool {
	f := r.Future(key)
	if !f.complete(value) {
		return false
	}
	r.notify(ctx, SignalCompleted, Event{Key: key, Status: StatusCompleted, Value: value})
	return true
}

// Reject settles key with an error, creating the entry when none exists
// yet. It reports whether the settlement took effect.
func (r *Registry) Reject(ctx context.Context, key string, err error) bool {
	f := r.Future(key)
	if !f.fail(err) {
		return false
	}
	r.notify(ctx, SignalFailed, Event{Key: key, Status: StatusFailed, Err: err})
	return true
}

// Status returns the state of key's entry. ok is false for unknown keys.
func (r *Registry) Status(key string) (Status, bool) {
	r.mu.Lock()
	f, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return "", false
	}
	return f.Status(), true
}

// Value returns the settled outcome for key. Unknown keys return
// ErrUnknownKey and unsettled entries return ErrUnsettled.
func (r *Registry) Value(key string) (any, error) {
	r.mu.Lock()
	f, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownKey
	}
	return f.Result()
}

// Settled reports whether key's entry exists and has settled.
func (r *Registry) Settled(key string) bool {
	r.mu.Lock()
	f, ok := r.entries[key]
	r.mu.Unlock()
	return ok && f.Settled()
}

// Keys returns all tracked keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a snapshot of every key's current status.
func (r *Registry) Entries() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Status, len(r.entries))
	for key, f := range r.entries {
		out[key] = f.Status()
	}
	return out
}

// Clear drops key from the registry and reports whether it was tracked.
// Futures already handed out stay valid and still settle.
func (r *Registry) Clear(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[key]
	delete(r.entries, key)
	return ok
}

// ClearAll drops every tracked key.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*Future)
}

func (r *Registry) notify(ctx context.Context, name string, ev Event) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Emit(ctx, name, ev); err != nil {
		ctxlog.FromContext(ctx).Error("Deferred signal emission failed.",
			"signal", name, "key", ev.Key, "error", err)
	}
}
