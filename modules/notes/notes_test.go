package notes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quazardous/qdadm-go/hook"
	"github.com/quazardous/qdadm-go/kernel"
	"github.com/quazardous/qdadm-go/signal"
)

// auditStub satisfies the notes requirement without pulling in the real
// audit module.
func auditStub() kernel.Spec {
	return kernel.Spec{
		Name:    "audit",
		Connect: func(context.Context, *kernel.Context) error { return nil },
	}
}

func bootWithNotes(t *testing.T, k *kernel.Kernel, m *Module) {
	t.Helper()
	require.NoError(t, k.Register(auditStub()))
	require.NoError(t, k.Register(m))
	require.NoError(t, k.Boot(context.Background()))
}

func TestModule_Capabilities(t *testing.T) {
	m := New()

	assert.Equal(t, "notes", m.Name())
	assert.Equal(t, []string{"audit"}, m.Requires())
	assert.Equal(t, 50, m.Priority())
	assert.Equal(t, "1.4.0", m.Version())
	assert.Equal(t, "^1.0", m.Compat())
}

func TestConnect_SeedsTrimmedNotes(t *testing.T) {
	k := kernel.New()
	m := New()
	bootWithNotes(t, k, m)

	notes := m.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, 1, notes[0].ID)
	assert.Equal(t, "Welcome to qdadm", notes[0].Title, "the presave pass trims titles")
	assert.Equal(t, 2, notes[1].ID)
	assert.Equal(t, "Profiles drive modules", notes[1].Title)
}

func TestCreate_RunsHooksAndSignals(t *testing.T) {
	k := kernel.New()
	m := New()

	var own []string
	k.Bus().On("notes:*", func(ctx context.Context, e signal.Event) error {
		own = append(own, e.Name)
		return nil
	})
	var kinds []string
	k.Bus().On("entity:created", func(ctx context.Context, e signal.Event) error {
		ev, ok := e.Payload.(signal.EntityEvent)
		require.True(t, ok)
		kinds = append(kinds, ev.Entity)
		return nil
	})

	bootWithNotes(t, k, m)

	note, err := m.Create(context.Background(), "  Meeting minutes  ", "work")
	require.NoError(t, err)
	assert.Equal(t, 3, note.ID)
	assert.Equal(t, "Meeting minutes", note.Title)
	assert.Equal(t, []string{"work"}, note.Tags)

	wantOwn := []string{"notes:created", "notes:created", "notes:created"}
	assert.Equal(t, wantOwn, own, "two seed writes plus the manual one")
	assert.Equal(t, []string{"note", "note", "note"}, kinds)
}

func TestCreate_FailingPresaveKeepsNoteOut(t *testing.T) {
	k := kernel.New()
	m := New()
	bootWithNotes(t, k, m)

	boom := errors.New("title rejected")
	_, err := k.Hooks().Register("entity:presave", func(context.Context, *hook.Event) error {
		return boom
	})
	require.NoError(t, err)

	_, createErr := m.Create(context.Background(), "anything")
	require.Error(t, createErr)
	assert.ErrorIs(t, createErr, boom)
	assert.Len(t, m.Notes(), 2)
}

func TestList_CapsToMaxTitlesOption(t *testing.T) {
	k := kernel.New()
	m := New()
	require.NoError(t, k.Register(auditStub()))
	require.NoError(t, k.Register(m))
	k.Loader().Override("notes", kernel.Override{
		Options: map[string]any{"max_titles": int64(1)},
	})
	require.NoError(t, k.Boot(context.Background()))

	titles, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Welcome to qdadm"}, titles)
	assert.Len(t, m.Notes(), 2, "the cap applies to the listing, not the store")
}

func TestIndexWarmup_BuildsTagIndex(t *testing.T) {
	k := kernel.New()
	m := New()
	bootWithNotes(t, k, m)

	value, err := k.Deferred().Await(context.Background(), IndexKey)
	require.NoError(t, err)

	index, ok := value.(map[string][]int)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, index["demo"])
}

func TestLifecycle_DisconnectClearsStore(t *testing.T) {
	k := kernel.New()
	m := New()
	bootWithNotes(t, k, m)
	require.NoError(t, k.Shutdown(context.Background()))

	assert.Empty(t, m.Notes())

	_, err := m.Create(context.Background(), "late")
	assert.ErrorContains(t, err, "not connected")
	_, err = m.List(context.Background())
	assert.ErrorContains(t, err, "not connected")
}
