package kernel

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/quazardous/qdadm-go/deferred"
	"github.com/quazardous/qdadm-go/hook"
	"github.com/quazardous/qdadm-go/internal/ctxlog"
	"github.com/quazardous/qdadm-go/signal"
)

// DefaultVersion is the kernel version modules' compat constraints check
// against when WithVersion is not given.
const DefaultVersion = "1.0.0"

// SignalReady is emitted by Boot after every module connected. Its
// payload is the loaded module names in load order.
const SignalReady = "kernel:ready"

// Kernel wires one signal bus, hook registry, deferred registry and
// module loader into a bootable whole.
type Kernel struct {
	version   *semver.Version
	bus       *signal.Bus
	hooks     *hook.Registry
	deferred  *deferred.Registry
	registrar Registrar
	loader    *Loader
}

// KernelOption configures New.
type KernelOption func(*Kernel)

// WithVersion sets the kernel version modules' compat constraints are
// checked against. The string must be valid semver; callers taking
// versions from user input validate them first.
func WithVersion(v string) KernelOption {
	return func(k *Kernel) { k.version = semver.MustParse(v) }
}

// WithBus injects a signal bus instead of a fresh one.
func WithBus(b *signal.Bus) KernelOption {
	return func(k *Kernel) { k.bus = b }
}

// WithHooks injects a hook registry instead of a fresh one.
func WithHooks(h *hook.Registry) KernelOption {
	return func(k *Kernel) { k.hooks = h }
}

// WithDeferred injects a deferred registry instead of a fresh one. An
// injected registry keeps whatever notifier it was built with.
func WithDeferred(d *deferred.Registry) KernelOption {
	return func(k *Kernel) { k.deferred = d }
}

// WithRegistrar injects the UI registrar modules' fluent registrations
// forward to. The default is a Recording.
func WithRegistrar(r Registrar) KernelOption {
	return func(k *Kernel) { k.registrar = r }
}

// New assembles a Kernel. Subsystems not injected are created fresh; the
// default deferred registry emits its lifecycle signals on the kernel's
// bus.
func New(opts ...KernelOption) *Kernel {
	k := &Kernel{}
	for _, opt := range opts {
		opt(k)
	}

	if k.version == nil {
		k.version = semver.MustParse(DefaultVersion)
	}
	if k.bus == nil {
		k.bus = signal.NewBus()
	}
	if k.hooks == nil {
		k.hooks = hook.NewRegistry()
	}
	if k.deferred == nil {
		k.deferred = deferred.NewRegistry(deferred.WithNotifier(k.bus))
	}
	if k.registrar == nil {
		k.registrar = NewRecording()
	}
	k.loader = newLoader(k.version, k.bus, k.hooks, k.deferred, k.registrar)
	return k
}

// Register adds a module-like value to the loader.
func (k *Kernel) Register(v any) error {
	return k.loader.Add(v)
}

// Boot loads every registered module and, once all of them connected,
// emits SignalReady with the loaded names. A ready-subscriber error fails
// Boot the same way any emission fails.
func (k *Kernel) Boot(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Kernel booting.", "version", k.version.String())

	if err := k.loader.LoadAll(ctx); err != nil {
		return err
	}
	return k.bus.Emit(ctx, SignalReady, k.loader.Names())
}

// Shutdown unloads every loaded module in reverse load order.
func (k *Kernel) Shutdown(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Kernel shutting down.")
	return k.loader.UnloadAll(ctx)
}

// Version returns the kernel version string.
func (k *Kernel) Version() string { return k.version.String() }

// Bus returns the kernel's signal bus.
func (k *Kernel) Bus() *signal.Bus { return k.bus }

// Hooks returns the kernel's hook registry.
func (k *Kernel) Hooks() *hook.Registry { return k.hooks }

// Deferred returns the kernel's deferred registry.
func (k *Kernel) Deferred() *deferred.Registry { return k.deferred }

// Registrar returns the kernel's UI registrar.
func (k *Kernel) Registrar() Registrar { return k.registrar }

// Loader returns the kernel's module loader.
func (k *Kernel) Loader() *Loader { return k.loader }
