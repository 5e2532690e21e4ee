package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quazardous/qdadm-go/kernel"
	"github.com/quazardous/qdadm-go/modules/audit"
	"github.com/quazardous/qdadm-go/modules/dashboard"
	"github.com/quazardous/qdadm-go/modules/notes"
	"github.com/quazardous/qdadm-go/profile"
)

// bootDemoKernel assembles the bundled modules on a fresh kernel, keeping
// the instances reachable for assertions.
func bootDemoKernel(t *testing.T, ctx context.Context) (*kernel.Kernel, *notes.Module, *audit.Trail) {
	t.Helper()
	k := kernel.New()
	m := notes.New()
	tr := audit.NewTrail()
	require.NoError(t, k.Register(m))
	require.NoError(t, k.Register(tr.Spec()))
	require.NoError(t, k.Register(dashboard.Connect))
	require.NoError(t, k.Boot(ctx))
	return k, m, tr
}

// TestEntityFlow_WriteReachesEveryObserver drives one note write through the
// loaded module set and checks every surface it should touch: presave
// normalization, the audit trail, postsave accounting and the trail hook.
func TestEntityFlow_WriteReachesEveryObserver(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	k, m, tr := bootDemoKernel(t, ctx)

	// --- Act ---
	note, err := m.Create(ctx, "  Quarterly report  ", "work")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", note.Title)
	assert.True(t, tr.Ready())

	// Two seed writes happen at connect, the manual write is the third.
	assert.Equal(t, 3, tr.Saves())

	wantTrail := []audit.Entry{
		{Signal: "entity:created", Kind: "note"},
		{Signal: "entity:created", Kind: "note"},
		{Signal: "entity:created", Kind: "note"},
	}
	if diff := cmp.Diff(wantTrail, tr.Entries()); diff != "" {
		t.Errorf("audit trail mismatch (-want +got):\n%s", diff)
	}

	// The trail is also readable without importing the audit package, by
	// running its alter hook.
	value, err := k.Hooks().Alter(ctx, audit.TrailHook, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(wantTrail, value); diff != "" {
		t.Errorf("trail hook mismatch (-want +got):\n%s", diff)
	}
}

// TestEntityFlow_DeferredIndexCoversSeeds awaits the lazy tag index and
// checks it covers the notes seeded at connect time.
func TestEntityFlow_DeferredIndexCoversSeeds(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	k, _, _ := bootDemoKernel(t, ctx)

	// --- Act ---
	value, err := k.Deferred().Await(ctx, notes.IndexKey)

	// --- Assert ---
	require.NoError(t, err)
	want := map[string][]int{"demo": {1, 2}}
	if diff := cmp.Diff(want, value); diff != "" {
		t.Errorf("tag index mismatch (-want +got):\n%s", diff)
	}
}

// TestEntityFlow_ProfileOptionsReachModules loads a profile from disk,
// applies it to the loader and expects the option to shape module behavior
// after boot.
func TestEntityFlow_ProfileOptionsReachModules(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "opts.hcl")
	require.NoError(t, os.WriteFile(file, []byte(`
module "notes" {
  options {
    max_titles = 1
  }
}
`), 0600))

	p, err := profile.Load(ctx, file)
	require.NoError(t, err)

	k := kernel.New()
	m := notes.New()
	tr := audit.NewTrail()
	require.NoError(t, k.Register(m))
	require.NoError(t, k.Register(tr.Spec()))
	require.Empty(t, p.Apply(k.Loader()))
	require.NoError(t, k.Boot(ctx))

	// --- Act ---
	titles, err := m.List(ctx)

	// --- Assert ---
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"Welcome to qdadm"}, titles); diff != "" {
		t.Errorf("capped listing mismatch (-want +got):\n%s", diff)
	}
}

// TestEntityFlow_ShutdownUnwindsObservers shuts the kernel down and expects
// later bus traffic to reach nobody.
func TestEntityFlow_ShutdownUnwindsObservers(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	k, _, tr := bootDemoKernel(t, ctx)
	require.Equal(t, 2, len(tr.Entries()))

	// --- Act ---
	require.NoError(t, k.Shutdown(ctx))
	require.NoError(t, k.Bus().EmitEntity(ctx, "note", "deleted", nil))

	// --- Assert ---
	assert.Empty(t, tr.Entries())
	assert.Zero(t, k.Bus().ListenerCount("entity:created"))
}
