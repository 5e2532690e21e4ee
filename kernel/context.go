package kernel

import (
	"sync"

	"github.com/quazardous/qdadm-go/deferred"
	"github.com/quazardous/qdadm-go/hook"
	"github.com/quazardous/qdadm-go/signal"
)

// Context is the per-module façade handed to connect. It exposes the
// shared subsystems, tracks teardown for the module that owns it, and
// forwards UI registrations to the registrar. One Context belongs to
// exactly one module for one loaded lifetime.
type Context struct {
	module    string
	bus       *signal.Bus
	hooks     *hook.Registry
	deferred  *deferred.Registry
	registrar Registrar
	options   map[string]any

	mu       sync.Mutex
	drained  bool
	cleanups []func()
}

// Module returns the owning module's name.
func (c *Context) Module() string { return c.module }

// Bus returns the shared signal bus.
func (c *Context) Bus() *signal.Bus { return c.bus }

// Hooks returns the shared hook registry.
func (c *Context) Hooks() *hook.Registry { return c.hooks }

// Deferred returns the shared deferred registry.
func (c *Context) Deferred() *deferred.Registry { return c.deferred }

// Options returns a copy of the module's profile-supplied options. An
// unconfigured module gets an empty map.
func (c *Context) Options() map[string]any {
	out := make(map[string]any, len(c.options))
	for k, v := range c.options {
		out[k] = v
	}
	return out
}

// On subscribes on the shared bus and tracks the unsubscribe in the
// module's cleanup list, so disconnecting the module tears the
// subscription down automatically. The unsubscribe is also returned for
// callers that want to drop it earlier; calling it twice is harmless.
func (c *Context) On(pattern string, h signal.Handler, opts ...signal.SubOption) func() {
	off := c.bus.On(pattern, h, opts...)
	c.AddCleanup(off)
	return off
}

// AddCleanup appends teardown to the module's cleanup list. The list
// drains exactly once during unload, newest first. A cleanup added after
// the drain runs immediately.
func (c *Context) AddCleanup(fn func()) {
	c.mu.Lock()
	if c.drained {
		c.mu.Unlock()
		fn()
		return
	}
	c.cleanups = append(c.cleanups, fn)
	c.mu.Unlock()
}

// drain runs the cleanup list newest first. A second drain is a no-op.
func (c *Context) drain() {
	c.mu.Lock()
	if c.drained {
		c.mu.Unlock()
		return
	}
	c.drained = true
	cleanups := c.cleanups
	c.cleanups = nil
	c.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Route forwards a route registration to the registrar. The target is
// opaque to the kernel.
func (c *Context) Route(path string, target any) *Context {
	c.registrar.Route(c.module, path, target)
	return c
}

// Nav forwards a navigation entry to the registrar.
func (c *Context) Nav(label, path string) *Context {
	c.registrar.Nav(c.module, label, path)
	return c
}

// Zone forwards a layout zone declaration to the registrar.
func (c *Context) Zone(name string) *Context {
	c.registrar.Zone(c.module, name)
	return c
}

// Block forwards a block placement to the registrar. The block value is
// opaque to the kernel.
func (c *Context) Block(zone string, block any) *Context {
	c.registrar.Block(c.module, zone, block)
	return c
}
