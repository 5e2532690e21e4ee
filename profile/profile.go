package profile

import (
	"context"
	"fmt"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
	"github.com/quazardous/qdadm-go/internal/fsutil"
	"github.com/quazardous/qdadm-go/kernel"
)

// Profile is the merged, source-agnostic view of one or more profile
// files. Zero values mean "not set by any file".
type Profile struct {
	// LogLevel and LogFormat adjust process logging when non-empty.
	// Command line flags still take precedence at the CLI layer.
	LogLevel  string
	LogFormat string

	// Version pins the kernel version that module compatibility
	// constraints are checked against. Empty keeps the kernel default.
	Version string

	modules map[string]*ModuleProfile
	order   []string
}

// ModuleProfile carries the overrides a profile declares for one module.
// Nil Enabled and Priority leave the module's own values in place.
type ModuleProfile struct {
	Name     string
	Enabled  *bool
	Priority *int
	Options  map[string]any
}

// New returns an empty profile. Load and LoadDir start from one; an
// empty profile applied to a loader changes nothing.
func New() *Profile {
	return &Profile{modules: make(map[string]*ModuleProfile)}
}

// Load parses a single profile file.
func Load(ctx context.Context, file string) (*Profile, error) {
	p := New()
	if err := p.mergeFile(ctx, file); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadDir discovers every .hcl file under dir recursively and merges them
// in lexical path order into one profile.
func LoadDir(ctx context.Context, dir string) (*Profile, error) {
	files, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to discover profile files in %s: %w", dir, err)
	}
	ctxlog.FromContext(ctx).Debug("Discovered profile files.", "dir", dir, "count", len(files))

	p := New()
	for _, file := range files {
		if err := p.mergeFile(ctx, file); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Module returns the merged overrides for name, if any file mentioned it.
func (p *Profile) Module(name string) (*ModuleProfile, bool) {
	m, ok := p.modules[name]
	return m, ok
}

// ModuleNames lists the modules the profile mentions, in first-seen order
// across the merged files.
func (p *Profile) ModuleNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Apply pushes the per-module overrides into the loader. Names the
// profile mentions but the loader never registered are returned so
// callers can warn about typos or missing registrations.
func (p *Profile) Apply(loader *kernel.Loader) []string {
	var unmatched []string
	for _, name := range p.order {
		m := p.modules[name]
		ok := loader.Override(name, kernel.Override{
			Enabled:  m.Enabled,
			Priority: m.Priority,
			Options:  m.Options,
		})
		if !ok {
			unmatched = append(unmatched, name)
		}
	}
	return unmatched
}
