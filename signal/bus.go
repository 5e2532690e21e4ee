package signal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/quazardous/qdadm-go/internal/ctxlog"
)

// Event is what every subscriber receives. ID is unique per emission so
// handlers and logs can correlate one dispatch across subscribers.
type Event struct {
	ID      string
	Name    string
	Payload any
}

// Handler processes one matching emission. Returning an error aborts the
// rest of that emission's dispatch.
type Handler func(ctx context.Context, e Event) error

// subscription is one registered handler under a pattern bucket.
type subscription struct {
	seq      int
	pattern  string
	priority int
	once     bool
	handler  Handler
}

// SubOption configures a subscription.
type SubOption func(*subscription)

// WithPriority sets the dispatch priority. Higher values run earlier;
// the default is 0. Equal priorities preserve subscription order.
func WithPriority(p int) SubOption {
	return func(s *subscription) { s.priority = p }
}

// OneShot removes the subscription after its first matching emission.
func OneShot() SubOption {
	return func(s *subscription) { s.once = true }
}

// Bus is the signal dispatcher. The zero value is not usable; construct
// with NewBus. Registration is safe from any goroutine, but dispatch is
// sequential within one Emit call.
type Bus struct {
	mu      sync.Mutex
	buckets map[string][]*subscription
	seq     int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		buckets: make(map[string][]*subscription),
	}
}

// On registers a handler for every signal matching pattern and returns its
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bus) On(pattern string, h Handler, opts ...SubOption) func() {
	sub := &subscription{
		pattern: pattern,
		handler: h,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	sub.seq = b.seq
	b.seq++
	b.buckets[pattern] = append(b.buckets[pattern], sub)
	b.mu.Unlock()

	return func() { b.remove(sub) }
}

// Emit dispatches a signal to every matching subscription, in descending
// priority order (ties by subscription order), awaiting each handler before
// the next. The matching set is snapshotted up front, so handlers that
// subscribe or unsubscribe mid-pass never affect the current pass. The
// first handler error stops the pass and is returned wrapped.
func (b *Bus) Emit(ctx context.Context, name string, payload any) error {
	ev := Event{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: payload,
	}

	matches := b.snapshotMatching(name)
	ctxlog.FromContext(ctx).Debug("Dispatching signal.",
		"signal", name, "event_id", ev.ID, "subscribers", len(matches))

	for _, sub := range matches {
		if sub.once {
			b.remove(sub)
		}
		if err := sub.handler(ctx, ev); err != nil {
			return fmt.Errorf("signal %q handler failed: %w", name, err)
		}
	}
	return nil
}

// snapshotMatching collects and orders the subscriptions matching name.
func (b *Bus) snapshotMatching(name string) []*subscription {
	b.mu.Lock()
	var matches []*subscription
	for pattern, subs := range b.buckets {
		if !Match(pattern, name) {
			continue
		}
		matches = append(matches, subs...)
	}
	b.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].priority != matches[j].priority {
			return matches[i].priority > matches[j].priority
		}
		return matches[i].seq < matches[j].seq
	})
	return matches
}

// remove deletes one subscription from its bucket, dropping the bucket when
// it empties. Removing an already-removed subscription is a no-op.
func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.buckets[sub.pattern]
	if !ok {
		return
	}
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.buckets, sub.pattern)
	} else {
		b.buckets[sub.pattern] = subs
	}
}

// OffAll removes subscriptions. With no arguments the whole table is
// cleared; otherwise only the buckets registered under exactly the given
// patterns are dropped (no wildcard expansion).
func (b *Bus) OffAll(patterns ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(patterns) == 0 {
		b.buckets = make(map[string][]*subscription)
		return
	}
	for _, p := range patterns {
		delete(b.buckets, p)
	}
}

// ListenerCount returns the number of live subscriptions, either in total
// or under exactly the given pattern buckets.
func (b *Bus) ListenerCount(patterns ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	if len(patterns) == 0 {
		for _, subs := range b.buckets {
			count += len(subs)
		}
		return count
	}
	for _, p := range patterns {
		count += len(b.buckets[p])
	}
	return count
}

// SignalNames returns the sorted pattern keys that currently hold at least
// one subscription.
func (b *Bus) SignalNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.buckets))
	for name := range b.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
