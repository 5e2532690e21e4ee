package deferred

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is a deferred entry's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrUnknownKey reports a lookup for a key with no entry.
var ErrUnknownKey = errors.New("deferred: unknown key")

// ErrUnsettled reports a non-blocking read of an entry that has not
// completed or failed yet.
var ErrUnsettled = errors.New("deferred: entry not settled")

// ExecPanicError records a panic recovered from a queued executor. The
// entry fails with this error so the panic cannot leave a future unsettled.
type ExecPanicError struct {
	Key   string
	Value any
}

// Error implements the error interface.
func (e *ExecPanicError) Error() string {
	return fmt.Sprintf("deferred %q: executor panicked: %v", e.Key, e.Value)
}

// Future is a named, single-settlement promise. Futures are created by a
// Registry and stay valid even after the registry clears the key.
type Future struct {
	key     string
	created time.Time

	mu     sync.Mutex
	status Status
	value  any
	err    error

	done chan struct{}
}

func newFuture(key string) *Future {
	return &Future{
		key:     key,
		created: time.Now(),
		status:  StatusPending,
		done:    make(chan struct{}),
	}
}

// Key returns the registry key this future was created under.
func (f *Future) Key() string { return f.key }

// CreatedAt returns the entry's creation time.
func (f *Future) CreatedAt() time.Time { return f.created }

// Status returns the current lifecycle state.
func (f *Future) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Settled reports whether the future has completed or failed.
func (f *Future) Settled() bool {
	switch f.Status() {
	case StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Done returns a channel closed at settlement.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the future settles or ctx is canceled, then returns
// the settled value or error.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled outcome without blocking. Before settlement it
// returns ErrUnsettled.
func (f *Future) Result() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.status {
	case StatusCompleted:
		return f.value, nil
	case StatusFailed:
		return nil, f.err
	default:
		return nil, ErrUnsettled
	}
}

// markRunning transitions pending to running. Any other state leaves the
// future untouched and returns false.
func (f *Future) markRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusPending {
		return false
	}
	f.status = StatusRunning
	return true
}

// complete settles the future with a value. Returns false when already
// settled.
func (f *Future) complete(value any) bool {
	f.mu.Lock()
	if f.status == StatusCompleted || f.status == StatusFailed {
		f.mu.Unlock()
		return false
	}
	f.status = StatusCompleted
	f.value = value
	f.mu.Unlock()

	close(f.done)
	return true
}

// fail settles the future with an error. Returns false when already settled.
func (f *Future) fail(err error) bool {
	f.mu.Lock()
	if f.status == StatusCompleted || f.status == StatusFailed {
		f.mu.Unlock()
		return false
	}
	f.status = StatusFailed
	f.err = err
	f.mu.Unlock()

	close(f.done)
	return true
}
