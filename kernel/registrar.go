package kernel

import "sync"

// Registrar receives the UI registrations modules make through their
// Context. The kernel never interprets them; a real admin UI injects its
// own implementation and the default Recording just keeps them for
// introspection.
type Registrar interface {
	Route(module, path string, target any)
	Nav(module, label, path string)
	Zone(module, name string)
	Block(module, zone string, block any)
}

// RouteEntry is one recorded route registration.
type RouteEntry struct {
	Module string
	Path   string
	Target any
}

// NavEntry is one recorded navigation entry.
type NavEntry struct {
	Module string
	Label  string
	Path   string
}

// ZoneEntry is one recorded layout zone declaration.
type ZoneEntry struct {
	Module string
	Name   string
}

// BlockEntry is one recorded block placement.
type BlockEntry struct {
	Module string
	Zone   string
	Block  any
}

// Recording is the default Registrar. It stores registrations in arrival
// order and hands out copies.
type Recording struct {
	mu     sync.Mutex
	routes []RouteEntry
	navs   []NavEntry
	zones  []ZoneEntry
	blocks []BlockEntry
}

// NewRecording creates an empty Recording.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) Route(module, path string, target any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, RouteEntry{Module: module, Path: path, Target: target})
}

func (r *Recording) Nav(module, label, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navs = append(r.navs, NavEntry{Module: module, Label: label, Path: path})
}

func (r *Recording) Zone(module, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones = append(r.zones, ZoneEntry{Module: module, Name: name})
}

func (r *Recording) Block(module, zone string, block any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, BlockEntry{Module: module, Zone: zone, Block: block})
}

// Routes returns the recorded routes in arrival order.
func (r *Recording) Routes() []RouteEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RouteEntry(nil), r.routes...)
}

// Navs returns the recorded navigation entries in arrival order.
func (r *Recording) Navs() []NavEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NavEntry(nil), r.navs...)
}

// Zones returns the recorded zone declarations in arrival order.
func (r *Recording) Zones() []ZoneEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ZoneEntry(nil), r.zones...)
}

// Blocks returns the recorded block placements in arrival order.
func (r *Recording) Blocks() []BlockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BlockEntry(nil), r.blocks...)
}
