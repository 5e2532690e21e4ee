package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quazardous/qdadm-go/signal"
)

func TestContext_AccessorsShareLoaderSubsystems(t *testing.T) {
	l := NewLoader()
	ctx := context.Background()

	var kc *Context
	require.NoError(t, l.Add(Spec{
		Name: "probe",
		Connect: func(_ context.Context, c *Context) error {
			kc = c
			return nil
		},
	}))
	require.NoError(t, l.LoadAll(ctx))
	require.NotNil(t, kc)

	assert.Equal(t, "probe", kc.Module())
	assert.Same(t, l.bus, kc.Bus())
	assert.Same(t, l.hooks, kc.Hooks())
	assert.Same(t, l.deferred, kc.Deferred())
}

func TestContext_OptionsAreCopies(t *testing.T) {
	c := &Context{module: "m", options: map[string]any{"limit": 3}}

	got := c.Options()
	got["limit"] = 99
	got["extra"] = true

	assert.Equal(t, map[string]any{"limit": 3}, c.Options())
}

func TestContext_OnTracksAndReturnsUnsubscribe(t *testing.T) {
	bus := signal.NewBus()
	c := &Context{module: "m", bus: bus}
	ctx := context.Background()

	hits := 0
	off := c.On("ping", func(context.Context, signal.Event) error {
		hits++
		return nil
	})

	require.NoError(t, bus.Emit(ctx, "ping", nil))
	assert.Equal(t, 1, hits)

	// Early unsubscribe plus the drain must not double-remove anything.
	off()
	c.drain()
	require.NoError(t, bus.Emit(ctx, "ping", nil))
	assert.Equal(t, 1, hits)
	assert.Equal(t, 0, bus.ListenerCount())
}

func TestContext_DrainRunsNewestFirstExactlyOnce(t *testing.T) {
	c := &Context{module: "m"}

	var order []string
	c.AddCleanup(func() { order = append(order, "first") })
	c.AddCleanup(func() { order = append(order, "second") })
	c.AddCleanup(func() { order = append(order, "third") })

	c.drain()
	assert.Equal(t, []string{"third", "second", "first"}, order)

	c.drain()
	assert.Len(t, order, 3, "a second drain is a no-op")
}

func TestContext_AddCleanupAfterDrainRunsImmediately(t *testing.T) {
	c := &Context{module: "m"}
	c.drain()

	ran := false
	c.AddCleanup(func() { ran = true })
	assert.True(t, ran)
}

func TestContext_FluentRegistrationChain(t *testing.T) {
	rec := NewRecording()
	c := &Context{module: "notes", registrar: rec}

	handler := struct{ name string }{"list-page"}
	block := struct{ name string }{"recent-notes"}
	c.Route("/notes", handler).
		Nav("Notes", "/notes").
		Zone("sidebar").
		Block("sidebar", block)

	assert.Equal(t, []RouteEntry{{Module: "notes", Path: "/notes", Target: handler}}, rec.Routes())
	assert.Equal(t, []NavEntry{{Module: "notes", Label: "Notes", Path: "/notes"}}, rec.Navs())
	assert.Equal(t, []ZoneEntry{{Module: "notes", Name: "sidebar"}}, rec.Zones())
	assert.Equal(t, []BlockEntry{{Module: "notes", Zone: "sidebar", Block: block}}, rec.Blocks())
}

func TestRecording_HandsOutCopies(t *testing.T) {
	rec := NewRecording()
	rec.Nav("a", "A", "/a")

	navs := rec.Navs()
	navs[0].Label = "tampered"

	assert.Equal(t, "A", rec.Navs()[0].Label)
}
