package deferred

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_LazyCreation(t *testing.T) {
	r := NewRegistry()

	f1 := r.Future("warmup")
	f2 := r.Future("warmup")

	assert.Same(t, f1, f2, "same key must yield the same future")
	assert.Equal(t, StatusPending, f1.Status())
	assert.Equal(t, "warmup", f1.Key())
	assert.False(t, f1.CreatedAt().IsZero())
}

func TestQueue_RunsExactlyOnce(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	runs := 0
	exec := func(context.Context) (any, error) {
		runs++
		return "built", nil
	}

	f1 := r.Queue(ctx, "index", exec)
	f2 := r.Queue(ctx, "index", exec)
	require.Same(t, f1, f2)

	got, err := f1.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "built", got)
	assert.Equal(t, 1, runs)
	assert.Equal(t, StatusCompleted, f1.Status())

	// Queueing after settlement stays a no-op.
	r.Queue(ctx, "index", exec)
	assert.Equal(t, 1, runs)
}

func TestAwait_BeforeAnyProducer(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	type outcome struct {
		value any
		err   error
	}
	results := make(chan outcome, 1)
	go func() {
		v, err := r.Await(ctx, "late")
		results <- outcome{v, err}
	}()

	r.Queue(ctx, "late", func(context.Context) (any, error) {
		return 99, nil
	})

	got := <-results
	require.NoError(t, got.err)
	assert.Equal(t, 99, got.value)
}

func TestQueue_ExecutorFailure(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	boom := errors.New("boom")
	f := r.Queue(ctx, "broken", func(context.Context) (any, error) {
		return nil, boom
	})

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, f.Status())
}

func TestQueue_ExecutorPanicSettlesFailed(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	f := r.Queue(ctx, "panicky", func(context.Context) (any, error) {
		panic("kaboom")
	})

	_, err := f.Await(ctx)
	require.Error(t, err)
	var pe *ExecPanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "panicky", pe.Key)
	assert.Equal(t, "kaboom", pe.Value)
}

func TestResolveAndReject(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	t.Run("resolve creates and settles an unknown key", func(t *testing.T) {
		assert.True(t, r.Resolve(ctx, "external", "from-notification"))

		got, err := r.Await(ctx, "external")
		require.NoError(t, err)
		assert.Equal(t, "from-notification", got)
	})

	t.Run("settled entries refuse further settlement", func(t *testing.T) {
		assert.False(t, r.Resolve(ctx, "external", "again"))
		assert.False(t, r.Reject(ctx, "external", errors.New("nope")))

		got, _ := r.Value("external")
		assert.Equal(t, "from-notification", got)
	})

	t.Run("resolve preempts queued work", func(t *testing.T) {
		require.True(t, r.Resolve(ctx, "preempted", 1))

		ran := false
		f := r.Queue(ctx, "preempted", func(context.Context) (any, error) {
			ran = true
			return 2, nil
		})

		got, err := f.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
		assert.False(t, ran, "executor must not run for a settled entry")
	})

	t.Run("reject settles with the error", func(t *testing.T) {
		cause := errors.New("upstream gone")
		require.True(t, r.Reject(ctx, "doomed", cause))

		_, err := r.Await(ctx, "doomed")
		assert.ErrorIs(t, err, cause)
		st, ok := r.Status("doomed")
		require.True(t, ok)
		assert.Equal(t, StatusFailed, st)
	})
}

func TestIntrospection(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.Future("b-pending")
	r.Resolve(ctx, "a-done", true)

	assert.Equal(t, []string{"a-done", "b-pending"}, r.Keys())
	assert.Equal(t, map[string]Status{
		"a-done":    StatusCompleted,
		"b-pending": StatusPending,
	}, r.Entries())

	assert.True(t, r.Settled("a-done"))
	assert.False(t, r.Settled("b-pending"))
	assert.False(t, r.Settled("missing"))

	_, err := r.Value("missing")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = r.Value("b-pending")
	assert.ErrorIs(t, err, ErrUnsettled)

	st, ok := r.Status("missing")
	assert.False(t, ok)
	assert.Empty(t, st)

	assert.True(t, r.Clear("a-done"))
	assert.False(t, r.Clear("a-done"))
	r.ClearAll()
	assert.Empty(t, r.Keys())
}

// recordingNotifier captures emissions for assertions; failErr, when set,
// makes every Emit fail. Each emission is also signalled on emitted so
// tests can wait for notifications sent from the executor goroutine.
type recordingNotifier struct {
	mu      sync.Mutex
	names   []string
	emitted chan struct{}
	failErr error
}

func (n *recordingNotifier) Emit(_ context.Context, name string, _ any) error {
	n.mu.Lock()
	n.names = append(n.names, name)
	n.mu.Unlock()
	if n.emitted != nil {
		n.emitted <- struct{}{}
	}
	return n.failErr
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.names...)
}

func waitEmissions(t *testing.T, n *recordingNotifier, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-n.emitted:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for emission %d of %d", i+1, count)
		}
	}
}

func TestNotifier_LifecycleSignals(t *testing.T) {
	notifier := &recordingNotifier{emitted: make(chan struct{}, 8)}
	r := NewRegistry(WithNotifier(notifier))
	ctx := context.Background()

	f := r.Queue(ctx, "job", func(context.Context) (any, error) {
		return "ok", nil
	})
	_, err := f.Await(ctx)
	require.NoError(t, err)

	waitEmissions(t, notifier, 2)
	assert.Equal(t, []string{SignalStarted, SignalCompleted}, notifier.snapshot())

	r.Reject(ctx, "other", errors.New("bad"))
	waitEmissions(t, notifier, 1)
	assert.Equal(t, []string{SignalStarted, SignalCompleted, SignalFailed}, notifier.snapshot())
}

func TestNotifier_EmitFailureDoesNotBlockSettlement(t *testing.T) {
	notifier := &recordingNotifier{failErr: errors.New("bus down")}
	r := NewRegistry(WithNotifier(notifier))
	ctx := context.Background()

	assert.True(t, r.Resolve(ctx, "still-works", 7))
	got, err := r.Value("still-works")
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
