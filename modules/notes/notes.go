// Package notes is a demo module exercising the full module interface:
// requirements, priority, versioning and profile options. It keeps a
// small in-memory note store and runs the conventional entity hooks and
// signals around every write.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/quazardous/qdadm-go/hook"
	"github.com/quazardous/qdadm-go/kernel"
	"github.com/quazardous/qdadm-go/signal"
)

// IndexKey names the deferred future holding the tag index warmup.
const IndexKey = "notes:index"

// Note is one stored demo note.
type Note struct {
	ID    int
	Title string
	Tags  []string
}

// Module implements every optional capability the loader detects.
type Module struct {
	mu        sync.Mutex
	kc        *kernel.Context
	notes     []Note
	nextID    int
	maxTitles int
}

// New returns an unconnected notes module.
func New() *Module {
	return &Module{maxTitles: 10}
}

func (m *Module) Name() string { return "notes" }

// Requires places the audit trail before notes so the seed writes land
// in it.
func (m *Module) Requires() []string { return []string{"audit"} }

// Priority keeps notes after infrastructure modules.
func (m *Module) Priority() int { return 50 }

func (m *Module) Version() string { return "1.4.0" }

func (m *Module) Compat() string { return "^1.0" }

// Connect wires hooks and UI registrations, seeds a couple of notes so a
// fresh boot has something to show, and queues the tag index warmup.
func (m *Module) Connect(ctx context.Context, kc *kernel.Context) error {
	m.mu.Lock()
	m.kc = kc
	switch n := kc.Options()["max_titles"].(type) {
	case int64:
		if n >= 0 {
			m.maxTitles = int(n)
		}
	case int:
		if n >= 0 {
			m.maxTitles = n
		}
	}
	m.mu.Unlock()

	// Titles are trimmed before any save, whichever module triggers it.
	unbind, err := kc.Hooks().Register("entity:presave", m.trimTitle, hook.WithID("notes-trim-title"))
	if err != nil {
		return err
	}
	kc.AddCleanup(unbind)

	unbind, err = kc.Hooks().RegisterAlter("notes:list:alter", m.capList, hook.WithID("notes-cap-list"))
	if err != nil {
		return err
	}
	kc.AddCleanup(unbind)

	kc.Route("/notes", "notes.Index").
		Route("/notes/new", "notes.Create").
		Nav("Notes", "/notes")

	for _, title := range []string{"  Welcome to qdadm  ", "Profiles drive modules"} {
		if _, err := m.Create(ctx, title, "demo"); err != nil {
			return err
		}
	}

	kc.Deferred().Queue(ctx, IndexKey, m.buildIndex)
	return nil
}

// Disconnect clears the store. Hook and signal registrations drain
// through the module context.
func (m *Module) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = nil
	m.kc = nil
	return nil
}

// Create runs the presave pass, stores the note, runs postsave and
// announces the write: the module's own signal first, then the generic
// entity signal.
func (m *Module) Create(ctx context.Context, title string, tags ...string) (Note, error) {
	m.mu.Lock()
	kc := m.kc
	m.mu.Unlock()
	if kc == nil {
		return Note{}, errors.New("notes: module is not connected")
	}

	note := &Note{Title: title, Tags: tags}
	ev := &signal.EntityEvent{Entity: "note", Data: note}
	if err := kc.Hooks().Invoke(ctx, "entity:presave", ev, hook.FailOnError()); err != nil {
		return Note{}, err
	}

	m.mu.Lock()
	m.nextID++
	note.ID = m.nextID
	m.notes = append(m.notes, *note)
	stored := *note
	m.mu.Unlock()

	saved := &signal.EntityEvent{Entity: "note", Data: stored}
	if err := kc.Hooks().Invoke(ctx, "entity:postsave", saved); err != nil {
		return Note{}, err
	}

	if err := kc.Bus().Emit(ctx, "notes:created", stored); err != nil {
		return Note{}, err
	}
	if err := kc.Bus().EmitEntity(ctx, "note", "created", stored); err != nil {
		return Note{}, err
	}
	return stored, nil
}

// List returns the stored titles after the notes:list:alter pass.
func (m *Module) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	kc := m.kc
	titles := make([]string, 0, len(m.notes))
	for _, n := range m.notes {
		titles = append(titles, n.Title)
	}
	m.mu.Unlock()
	if kc == nil {
		return nil, errors.New("notes: module is not connected")
	}

	altered, err := kc.Hooks().Alter(ctx, "notes:list:alter", titles)
	if err != nil {
		return nil, err
	}
	out, ok := altered.([]string)
	if !ok {
		return nil, fmt.Errorf("notes: list alter produced %T, want []string", altered)
	}
	return out, nil
}

// Notes returns a copy of the stored notes in insertion order.
func (m *Module) Notes() []Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Note(nil), m.notes...)
}

// trimTitle normalizes note titles during the generic presave pass.
func (m *Module) trimTitle(ctx context.Context, ev *hook.Event) error {
	entity, ok := ev.Context.(*signal.EntityEvent)
	if !ok || entity.Entity != "note" {
		return nil
	}
	if note, ok := entity.Data.(*Note); ok {
		note.Title = strings.TrimSpace(note.Title)
	}
	return nil
}

// capList truncates the title list to the profile-configured maximum.
func (m *Module) capList(ctx context.Context, value any) (any, error) {
	titles, ok := value.([]string)
	if !ok {
		return nil, nil
	}
	m.mu.Lock()
	limit := m.maxTitles
	m.mu.Unlock()
	if len(titles) <= limit {
		return nil, nil
	}
	return titles[:limit], nil
}

// buildIndex computes the tag index for the warmup future.
func (m *Module) buildIndex(ctx context.Context) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := make(map[string][]int)
	for _, n := range m.notes {
		for _, tag := range n.Tags {
			index[tag] = append(index[tag], n.ID)
		}
	}
	return index, nil
}
