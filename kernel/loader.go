package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/quazardous/qdadm-go/deferred"
	"github.com/quazardous/qdadm-go/hook"
	"github.com/quazardous/qdadm-go/internal/ctxlog"
	"github.com/quazardous/qdadm-go/internal/depgraph"
	"github.com/quazardous/qdadm-go/signal"
)

// lowestFirst places lower priorities earlier; equal priorities keep
// registration order. Inverse of the hook and signal convention, which
// both subsystems keep on purpose.
func lowestFirst(a, b depgraph.Node) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Seq < b.Seq
}

// Info is the read-only view of one loaded module.
type Info struct {
	Name     string
	Requires []string
	Priority int
	Version  string
}

// Override adjusts an already registered module before LoadAll. Nil
// fields leave the module's own value in place; Options merge per key
// over anything set earlier.
type Override struct {
	Enabled  *bool
	Priority *int
	Options  map[string]any
}

// Loader owns module registration and the load/unload lifecycle. Connect
// and disconnect passes run sequentially; registration is safe from any
// goroutine. The zero value is not usable; construct with NewLoader or
// through a Kernel.
type Loader struct {
	mu        sync.Mutex
	version   *semver.Version
	modules   map[string]*descriptor
	order     []string
	loaded    []string
	bus       *signal.Bus
	hooks     *hook.Registry
	deferred  *deferred.Registry
	registrar Registrar
}

func newLoader(version *semver.Version, bus *signal.Bus, hooks *hook.Registry, def *deferred.Registry, reg Registrar) *Loader {
	return &Loader{
		version:   version,
		modules:   make(map[string]*descriptor),
		bus:       bus,
		hooks:     hooks,
		deferred:  def,
		registrar: reg,
	}
}

// NewLoader creates a standalone Loader wired to fresh subsystems and a
// recording registrar, with no kernel version (compat constraints are
// skipped). Kernel assembly shares one subsystem set instead.
func NewLoader() *Loader {
	return newLoader(nil, signal.NewBus(), hook.NewRegistry(), deferred.NewRegistry(), NewRecording())
}

// Add registers a module-like value: a Module implementation, a Spec, or
// a named InitFunc. The input is normalized once into the canonical
// descriptor. Name collisions fail with *DuplicateModuleError, shapes the
// adapter cannot name fail with *InvalidModuleFormatError, and a compat
// constraint the kernel version cannot satisfy fails with
// *IncompatibleModuleError.
func (l *Loader) Add(v any) error {
	d, err := normalize(v)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.modules[d.name]; ok {
		return &DuplicateModuleError{Name: d.name}
	}
	if d.compat != nil && l.version != nil && !d.compat.Check(l.version) {
		return &IncompatibleModuleError{
			Module:        d.name,
			Constraint:    d.compatExpr,
			KernelVersion: l.version.String(),
		}
	}

	l.modules[d.name] = d
	l.order = append(l.order, d.name)
	return nil
}

// Override applies profile-style adjustments to a registered module and
// reports whether the name matched.
func (l *Loader) Override(name string, o Override) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.modules[name]
	if !ok {
		return false
	}
	if o.Enabled != nil {
		d.forceOn = o.Enabled
	}
	if o.Priority != nil {
		d.priority = *o.Priority
	}
	if len(o.Options) > 0 {
		if d.options == nil {
			d.options = make(map[string]any, len(o.Options))
		}
		for k, v := range o.Options {
			d.options[k] = v
		}
	}
	return true
}

// LoadAll resolves the dependency order and connects modules
// sequentially. Missing requirements and cycles fail before any connect
// runs. Disabled modules are skipped along with every module requiring
// them; unrelated modules load normally. A connect failure aborts the
// remaining loads without rolling back modules already connected.
// Modules loaded by an earlier pass stay loaded and are not reconnected.
func (l *Loader) LoadAll(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)

	l.mu.Lock()
	regOrder := append([]string(nil), l.order...)
	mods := make(map[string]*descriptor, len(l.modules))
	for name, d := range l.modules {
		mods[name] = d
	}
	alreadyLoaded := make(map[string]bool, len(l.loaded))
	for _, name := range l.loaded {
		alreadyLoaded[name] = true
	}
	l.mu.Unlock()

	order, err := resolveOrder(regOrder, mods)
	if err != nil {
		return err
	}
	log.Debug("Module load order resolved.", "order", order)

	connected := 0
	skipped := make(map[string]bool, len(order))
	for _, name := range order {
		d := mods[name]
		if alreadyLoaded[name] {
			log.Debug("Module already loaded.", "module", name)
			continue
		}
		if req, ok := skippedRequirement(d, skipped); ok {
			skipped[name] = true
			log.Info("Module skipped, requirement not loaded.",
				"module", name, "requires", req)
			continue
		}
		if !d.isEnabled(ctx) {
			skipped[name] = true
			log.Info("Module disabled.", "module", name)
			continue
		}

		kc := l.newContext(d)
		if err := d.connect(ctx, kc); err != nil {
			return &ModuleLoadError{Module: name, Err: err}
		}
		d.kc = kc

		l.mu.Lock()
		l.loaded = append(l.loaded, name)
		l.mu.Unlock()
		connected++
		log.Debug("Module connected.", "module", name)
	}

	log.Info("Modules loaded.", "connected", connected, "skipped", len(skipped))
	return nil
}

// Plan resolves the connect order without connecting anything: the
// modules LoadAll would connect next, in order. Already loaded modules
// still satisfy requirements but are not listed again.
func (l *Loader) Plan(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	regOrder := append([]string(nil), l.order...)
	mods := make(map[string]*descriptor, len(l.modules))
	for name, d := range l.modules {
		mods[name] = d
	}
	alreadyLoaded := make(map[string]bool, len(l.loaded))
	for _, name := range l.loaded {
		alreadyLoaded[name] = true
	}
	l.mu.Unlock()

	order, err := resolveOrder(regOrder, mods)
	if err != nil {
		return nil, err
	}

	var plan []string
	skipped := make(map[string]bool, len(order))
	for _, name := range order {
		d := mods[name]
		if alreadyLoaded[name] {
			continue
		}
		if _, ok := skippedRequirement(d, skipped); ok {
			skipped[name] = true
			continue
		}
		if !d.isEnabled(ctx) {
			skipped[name] = true
			continue
		}
		plan = append(plan, name)
	}
	return plan, nil
}

// resolveOrder verifies every requirement resolves and linearizes the
// graph: lowest priority first among dependency-satisfied modules, ties
// by registration order.
func resolveOrder(regOrder []string, mods map[string]*descriptor) ([]string, error) {
	for _, name := range regOrder {
		for _, req := range mods[name].requires {
			if req == name {
				return nil, &CircularDependencyError{Cycle: []string{name}}
			}
			if _, ok := mods[req]; !ok {
				return nil, &ModuleNotFoundError{Missing: req, RequiredBy: name}
			}
		}
	}

	g := depgraph.New(lowestFirst)
	for _, name := range regOrder {
		g.AddNode(name, mods[name].priority)
	}
	for _, name := range regOrder {
		for _, req := range mods[name].requires {
			// Both endpoints were just verified, so the edge cannot fail.
			_ = g.AddEdge(req, name)
		}
	}

	order, cycle := g.Order(false)
	if len(cycle) > 0 {
		return nil, &CircularDependencyError{Cycle: cycle}
	}
	return order, nil
}

func skippedRequirement(d *descriptor, skipped map[string]bool) (string, bool) {
	for _, req := range d.requires {
		if skipped[req] {
			return req, true
		}
	}
	return "", false
}

func (l *Loader) newContext(d *descriptor) *Context {
	return &Context{
		module:    d.name,
		bus:       l.bus,
		hooks:     l.hooks,
		deferred:  l.deferred,
		registrar: l.registrar,
		options:   d.options,
	}
}

// UnloadAll disconnects loaded modules in exact reverse load order,
// sequentially. Each module's own disconnect runs first, then its context
// drains the auto-tracked cleanups. The first failure propagates
// immediately and leaves the loaded set untouched; the set clears only
// after a fully successful pass.
func (l *Loader) UnloadAll(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)

	l.mu.Lock()
	loaded := append([]string(nil), l.loaded...)
	mods := make(map[string]*descriptor, len(loaded))
	for _, name := range loaded {
		mods[name] = l.modules[name]
	}
	l.mu.Unlock()

	for i := len(loaded) - 1; i >= 0; i-- {
		d := mods[loaded[i]]
		if d.disconnect != nil {
			if err := d.disconnect(ctx); err != nil {
				return fmt.Errorf("module %q disconnect failed: %w", d.name, err)
			}
		}
		if d.kc != nil {
			d.kc.drain()
		}
		log.Debug("Module disconnected.", "module", d.name)
	}

	l.mu.Lock()
	l.loaded = nil
	l.mu.Unlock()

	log.Info("Modules unloaded.", "count", len(loaded))
	return nil
}

// Modules returns a defensive copy of the loaded set keyed by name.
func (l *Loader) Modules() map[string]Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Info, len(l.loaded))
	for _, name := range l.loaded {
		out[name] = l.modules[name].info()
	}
	return out
}

// Loaded reports whether the named module connected successfully.
func (l *Loader) Loaded(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, n := range l.loaded {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns the loaded module names in load order.
func (l *Loader) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}
