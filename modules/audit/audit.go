// Package audit is a demo module in the plain spec shape. It records
// every entity signal seen while loaded and exposes the trail through an
// alter hook, so other modules can read it without importing this
// package.
package audit

import (
	"context"
	"sync"

	"github.com/quazardous/qdadm-go/hook"
	"github.com/quazardous/qdadm-go/kernel"
	"github.com/quazardous/qdadm-go/signal"
)

// TrailHook is the alter hook that hands out a copy of the recorded
// entries.
const TrailHook = "audit:trail:alter"

// Entry is one recorded bus observation.
type Entry struct {
	Signal string
	Kind   string
}

// Trail accumulates entries while its module is loaded.
type Trail struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
	ready   bool
}

// NewTrail returns an empty trail.
func NewTrail() *Trail {
	return &Trail{}
}

// Spec returns the registration spec for the audit module. Subscriptions
// go through the module context, so unloading drops them automatically.
func (tr *Trail) Spec() kernel.Spec {
	return kernel.Spec{
		Name:       "audit",
		Priority:   20,
		Version:    "0.9.0",
		Connect:    tr.connect,
		Disconnect: tr.disconnect,
	}
}

func (tr *Trail) connect(ctx context.Context, kc *kernel.Context) error {
	kc.On("entity:*", tr.record)
	kc.On("kernel:ready", tr.markReady)

	unbind, err := kc.Hooks().Register("entity:postsave", tr.countSave, hook.WithID("audit-count-save"))
	if err != nil {
		return err
	}
	kc.AddCleanup(unbind)

	unbind, err = kc.Hooks().RegisterAlter(TrailHook, tr.appendTrail, hook.WithID("audit-trail"))
	if err != nil {
		return err
	}
	kc.AddCleanup(unbind)
	return nil
}

func (tr *Trail) disconnect(ctx context.Context) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entries = nil
	tr.saves = 0
	tr.ready = false
	return nil
}

// record keeps one entry per observed entity signal.
func (tr *Trail) record(ctx context.Context, e signal.Event) error {
	kind := ""
	if entity, ok := e.Payload.(signal.EntityEvent); ok {
		kind = entity.Entity
	}
	tr.mu.Lock()
	tr.entries = append(tr.entries, Entry{Signal: e.Name, Kind: kind})
	tr.mu.Unlock()
	return nil
}

func (tr *Trail) markReady(ctx context.Context, e signal.Event) error {
	tr.mu.Lock()
	tr.ready = true
	tr.mu.Unlock()
	return nil
}

func (tr *Trail) countSave(ctx context.Context, ev *hook.Event) error {
	tr.mu.Lock()
	tr.saves++
	tr.mu.Unlock()
	return nil
}

// appendTrail adds a copy of the recorded entries to the threaded value.
func (tr *Trail) appendTrail(ctx context.Context, value any) (any, error) {
	entries, _ := value.([]Entry)
	tr.mu.Lock()
	out := append(entries, tr.entries...)
	tr.mu.Unlock()
	return out, nil
}

// Entries returns a copy of the recorded trail.
func (tr *Trail) Entries() []Entry {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Entry(nil), tr.entries...)
}

// Saves reports how many postsave passes ran while loaded.
func (tr *Trail) Saves() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.saves
}

// Ready reports whether kernel:ready was observed.
func (tr *Trail) Ready() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.ready
}
