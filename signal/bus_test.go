package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnAndEmit(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var got []Event
	bus.On("books:created", func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, bus.Emit(ctx, "books:created", "payload-1"))
	require.NoError(t, bus.Emit(ctx, "books:deleted", "ignored"))

	require.Len(t, got, 1)
	assert.Equal(t, "books:created", got[0].Name)
	assert.Equal(t, "payload-1", got[0].Payload)
	assert.NotEmpty(t, got[0].ID)
}

func TestEmit_PriorityOrder(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var order []string
	record := func(tag string) Handler {
		return func(context.Context, Event) error {
			order = append(order, tag)
			return nil
		}
	}

	bus.On("ping", record("low"))
	bus.On("ping", record("high"), WithPriority(100))
	bus.On("ping", record("mid"), WithPriority(50))
	bus.On("ping", record("mid-tie"), WithPriority(50))

	require.NoError(t, bus.Emit(ctx, "ping", nil))
	assert.Equal(t, []string{"high", "mid", "mid-tie", "low"}, order)
}

func TestEmit_Wildcards(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	entityHits := 0
	bus.On("entity:*", func(context.Context, Event) error {
		entityHits++
		return nil
	})
	bookHits := 0
	bus.On("books:*", func(context.Context, Event) error {
		bookHits++
		return nil
	})

	for _, name := range []string{"entity:created", "entity:updated", "entity:deleted"} {
		require.NoError(t, bus.Emit(ctx, name, nil))
	}
	require.NoError(t, bus.Emit(ctx, "books:created", nil))

	assert.Equal(t, 3, entityHits)
	assert.Equal(t, 1, bookHits)
}

func TestEmit_HandlerErrorStopsDispatch(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	boom := errors.New("boom")
	bus.On("sig", func(context.Context, Event) error { return boom }, WithPriority(10))
	laterRan := false
	bus.On("sig", func(context.Context, Event) error {
		laterRan = true
		return nil
	})

	err := bus.Emit(ctx, "sig", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, `signal "sig"`)
	assert.False(t, laterRan, "handlers after the failing one must not run")
}

func TestEmit_OneShot(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	hits := 0
	bus.On("tick", func(context.Context, Event) error {
		hits++
		return nil
	}, OneShot())

	require.NoError(t, bus.Emit(ctx, "tick", nil))
	require.NoError(t, bus.Emit(ctx, "tick", nil))

	assert.Equal(t, 1, hits)
	assert.Zero(t, bus.ListenerCount("tick"))
}

func TestEmit_SnapshotIsolatesMidPassChanges(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	peerHits := 0
	var unsubPeer func()
	bus.On("sig", func(context.Context, Event) error {
		// Removing the peer mid-pass must not stop it from running in this
		// pass; the order was snapshotted at emit start.
		unsubPeer()
		return nil
	}, WithPriority(10))
	unsubPeer = bus.On("sig", func(context.Context, Event) error {
		peerHits++
		return nil
	})

	require.NoError(t, bus.Emit(ctx, "sig", nil))
	assert.Equal(t, 1, peerHits)

	require.NoError(t, bus.Emit(ctx, "sig", nil))
	assert.Equal(t, 1, peerHits, "peer was unsubscribed for later passes")
}

func TestUnsubscribeTwice(t *testing.T) {
	bus := NewBus()

	unsub := bus.On("sig", func(context.Context, Event) error { return nil })
	require.Equal(t, 1, bus.ListenerCount())

	unsub()
	unsub()
	assert.Zero(t, bus.ListenerCount())
}

func TestOnce_SettledByEmission(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	w := bus.Once("job:done")
	require.NoError(t, bus.Emit(ctx, "job:done", 42))

	got, err := w.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Zero(t, bus.ListenerCount("job:done"), "one-shot subscription removed")
}

func TestOnce_Timeout(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	w := bus.Once("never", WithTimeout(20*time.Millisecond))

	_, err := w.Await(ctx)
	require.Error(t, err)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "never", te.Pattern)
	assert.Zero(t, bus.ListenerCount("never"), "timed-out subscription removed")

	// A late emission must not disturb the settled waiter.
	require.NoError(t, bus.Emit(ctx, "never", "late"))
	got, err := w.Await(ctx)
	assert.Nil(t, got)
	assert.ErrorAs(t, err, &te)
}

func TestOnce_AwaitHonorsContext(t *testing.T) {
	bus := NewBus()

	w := bus.Once("never")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitEntity(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var got []Event
	bus.On("entity:*", func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, bus.EmitEntity(ctx, "books", "created", map[string]any{"id": 7}))

	require.Len(t, got, 1)
	assert.Equal(t, "entity:created", got[0].Name)
	payload, ok := got[0].Payload.(EntityEvent)
	require.True(t, ok)
	assert.Equal(t, "books", payload.Entity)
	assert.Equal(t, map[string]any{"id": 7}, payload.Data)
}

func TestIntrospection(t *testing.T) {
	bus := NewBus()

	bus.On("b:sig", func(context.Context, Event) error { return nil })
	bus.On("a:sig", func(context.Context, Event) error { return nil })
	bus.On("a:sig", func(context.Context, Event) error { return nil })

	assert.Equal(t, []string{"a:sig", "b:sig"}, bus.SignalNames())
	assert.Equal(t, 3, bus.ListenerCount())
	assert.Equal(t, 2, bus.ListenerCount("a:sig"))

	bus.OffAll("a:sig")
	assert.Equal(t, []string{"b:sig"}, bus.SignalNames())

	bus.OffAll()
	assert.Zero(t, bus.ListenerCount())
	assert.Empty(t, bus.SignalNames())
}
