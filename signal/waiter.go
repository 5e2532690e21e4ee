package signal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TimeoutError settles a Waiter whose deadline passed with no matching
// emission.
type TimeoutError struct {
	Pattern string
	After   time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("signal %q: no emission within %s", e.Pattern, e.After)
}

// onceConfig holds the options for Bus.Once.
type onceConfig struct {
	timeout time.Duration
}

// OnceOption configures a one-shot waiter.
type OnceOption func(*onceConfig)

// WithTimeout fails the waiter with a *TimeoutError if no matching signal
// arrives within d. Zero or negative durations leave the waiter unbounded.
func WithTimeout(d time.Duration) OnceOption {
	return func(c *onceConfig) { c.timeout = d }
}

// Waiter is a single-use future settled by the next matching emission or by
// its timeout, whichever comes first.
type Waiter struct {
	pattern string

	mu      sync.Mutex
	settled bool
	payload any
	err     error
	cleanup func()

	done chan struct{}
}

// Once returns a Waiter settling with the payload of the next signal
// matching pattern. The backing subscription is removed as soon as the
// waiter settles, by delivery or by timeout.
func (b *Bus) Once(pattern string, opts ...OnceOption) *Waiter {
	var cfg onceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Waiter{
		pattern: pattern,
		done:    make(chan struct{}),
	}

	unsubscribe := b.On(pattern, func(_ context.Context, e Event) error {
		w.settle(e.Payload, nil)
		return nil
	}, OneShot())

	var timer *time.Timer
	if cfg.timeout > 0 {
		timer = time.AfterFunc(cfg.timeout, func() {
			w.settle(nil, &TimeoutError{Pattern: pattern, After: cfg.timeout})
		})
	}

	// An emission may have settled the waiter between On and here; in that
	// case run the cleanup ourselves instead of recording it.
	w.mu.Lock()
	if w.settled {
		w.mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		unsubscribe()
		return w
	}
	w.cleanup = func() {
		if timer != nil {
			timer.Stop()
		}
		unsubscribe()
	}
	w.mu.Unlock()

	return w
}

// Pattern returns the pattern this waiter was armed with.
func (w *Waiter) Pattern() string { return w.pattern }

// Done returns a channel closed once the waiter settles.
func (w *Waiter) Done() <-chan struct{} { return w.done }

// Await blocks until the waiter settles or ctx is canceled, returning the
// emission payload or the settlement error.
func (w *Waiter) Await(ctx context.Context) (any, error) {
	select {
	case <-w.done:
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.payload, w.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle records the outcome exactly once and reports whether this call won.
// The cleanup runs before done closes so awaiters observe the subscription
// and timer already torn down.
func (w *Waiter) settle(payload any, err error) bool {
	w.mu.Lock()
	if w.settled {
		w.mu.Unlock()
		return false
	}
	w.settled = true
	w.payload = payload
	w.err = err
	cleanup := w.cleanup
	w.cleanup = nil
	w.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
	close(w.done)
	return true
}
