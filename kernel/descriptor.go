package kernel

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Module is the interface input shape. Optional capabilities are detected
// by type assertion at registration time; see RequiresModule and friends.
type Module interface {
	Name() string
	Connect(ctx context.Context, kc *Context) error
}

// RequiresModule names the modules that must load first.
type RequiresModule interface {
	Requires() []string
}

// PriorityModule overrides the load priority. Lower values load earlier;
// the default is 0.
type PriorityModule interface {
	Priority() int
}

// EnabledModule gates loading at LoadAll time. A false return skips the
// module entirely.
type EnabledModule interface {
	Enabled(ctx context.Context) bool
}

// DisconnectModule adds teardown run during UnloadAll.
type DisconnectModule interface {
	Disconnect(ctx context.Context) error
}

// VersionedModule declares the module's own semantic version.
type VersionedModule interface {
	Version() string
}

// CompatModule declares a semver constraint the kernel version must
// satisfy, checked at registration.
type CompatModule interface {
	Compat() string
}

// Spec is the descriptor-shaped input: a plain value with a name, a
// connect function and optional everything else.
type Spec struct {
	Name       string
	Requires   []string
	Priority   int
	Version    string
	Compat     string
	Enabled    func(ctx context.Context) bool
	Connect    func(ctx context.Context, kc *Context) error
	Disconnect func(ctx context.Context) error
}

// InitFunc is the legacy single-shot initializer shape. Its module name
// derives from the function symbol, so only named functions qualify.
type InitFunc func(ctx context.Context, kc *Context) error

// descriptor is the canonical module record. normalize produces it once
// at registration; the load and unload paths never re-inspect input
// shapes.
type descriptor struct {
	name       string
	requires   []string
	priority   int
	version    *semver.Version
	compat     *semver.Constraints
	compatExpr string
	enabled    func(ctx context.Context) bool
	connect    func(ctx context.Context, kc *Context) error
	disconnect func(ctx context.Context) error
	options    map[string]any
	forceOn    *bool
	kc         *Context
}

// isEnabled resolves the effective enablement: an Override pin wins, then
// the module's own gate, then the always-on default.
func (d *descriptor) isEnabled(ctx context.Context) bool {
	if d.forceOn != nil {
		return *d.forceOn
	}
	if d.enabled == nil {
		return true
	}
	return d.enabled(ctx)
}

func (d *descriptor) info() Info {
	info := Info{
		Name:     d.name,
		Requires: append([]string(nil), d.requires...),
		Priority: d.priority,
	}
	if d.version != nil {
		info.Version = d.version.String()
	}
	return info
}

// normalize detects the input shape by capability and produces the
// canonical descriptor.
func normalize(v any) (*descriptor, error) {
	switch m := v.(type) {
	case Module:
		return normalizeModule(m)
	case Spec:
		return normalizeSpec(&m)
	case *Spec:
		return normalizeSpec(m)
	case InitFunc:
		return normalizeFunc(m)
	case func(ctx context.Context, kc *Context) error:
		return normalizeFunc(m)
	case nil:
		return nil, &InvalidModuleFormatError{Reason: "nil module"}
	default:
		return nil, &InvalidModuleFormatError{
			Reason: fmt.Sprintf("unsupported input type %T", v),
		}
	}
}

func normalizeModule(m Module) (*descriptor, error) {
	name := m.Name()
	if name == "" {
		return nil, &InvalidModuleFormatError{
			Reason: fmt.Sprintf("module of type %T has an empty name", m),
		}
	}

	d := &descriptor{
		name:    name,
		connect: m.Connect,
	}
	if rm, ok := m.(RequiresModule); ok {
		d.requires = append([]string(nil), rm.Requires()...)
	}
	if pm, ok := m.(PriorityModule); ok {
		d.priority = pm.Priority()
	}
	if em, ok := m.(EnabledModule); ok {
		d.enabled = em.Enabled
	}
	if dm, ok := m.(DisconnectModule); ok {
		d.disconnect = dm.Disconnect
	}

	var version, compat string
	if vm, ok := m.(VersionedModule); ok {
		version = vm.Version()
	}
	if cm, ok := m.(CompatModule); ok {
		compat = cm.Compat()
	}
	if err := d.parseVersions(version, compat); err != nil {
		return nil, err
	}
	return d, nil
}

func normalizeSpec(s *Spec) (*descriptor, error) {
	if s.Name == "" {
		return nil, &InvalidModuleFormatError{Reason: "spec has an empty name"}
	}
	if s.Connect == nil {
		return nil, &InvalidModuleFormatError{
			Reason: fmt.Sprintf("spec %q has no connect function", s.Name),
		}
	}

	d := &descriptor{
		name:       s.Name,
		requires:   append([]string(nil), s.Requires...),
		priority:   s.Priority,
		enabled:    s.Enabled,
		connect:    s.Connect,
		disconnect: s.Disconnect,
	}
	if err := d.parseVersions(s.Version, s.Compat); err != nil {
		return nil, err
	}
	return d, nil
}

func normalizeFunc(fn InitFunc) (*descriptor, error) {
	if fn == nil {
		return nil, &InvalidModuleFormatError{Reason: "nil init function"}
	}
	name, err := funcModuleName(fn)
	if err != nil {
		return nil, err
	}
	return &descriptor{
		name:    name,
		connect: fn,
	}, nil
}

func (d *descriptor) parseVersions(version, compat string) error {
	if version != "" {
		v, err := semver.NewVersion(version)
		if err != nil {
			return &InvalidModuleFormatError{
				Reason: fmt.Sprintf("module %q version %q: %v", d.name, version, err),
			}
		}
		d.version = v
	}
	if compat != "" {
		c, err := semver.NewConstraint(compat)
		if err != nil {
			return &InvalidModuleFormatError{
				Reason: fmt.Sprintf("module %q compat %q: %v", d.name, compat, err),
			}
		}
		d.compat = c
		d.compatExpr = compat
	}
	return nil
}

// funcModuleName derives a module name from a named function's symbol.
// The symbol's package path and qualifier are stripped, leaving the bare
// function name. Anonymous functions, closures and method values produce
// symbols with extra dotted segments and are rejected.
func funcModuleName(fn InitFunc) (string, error) {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "", &InvalidModuleFormatError{Reason: "cannot resolve init function symbol"}
	}

	full := f.Name()
	short := full[strings.LastIndex(full, "/")+1:]
	if i := strings.Index(short, "."); i >= 0 {
		short = short[i+1:]
	}
	if short == "" || strings.Contains(short, ".") {
		return "", &InvalidModuleFormatError{
			Reason: fmt.Sprintf("cannot derive a module name from function %q", full),
		}
	}
	return short, nil
}
