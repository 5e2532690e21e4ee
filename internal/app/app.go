package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
	"github.com/quazardous/qdadm-go/kernel"
	"github.com/quazardous/qdadm-go/profile"
)

// App encapsulates the assembled kernel, the merged profile and the
// process logger.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	kernel  *kernel.Kernel
	profile *profile.Profile
	config  *Config
}

// NewApp assembles a kernel from the config and the given modules,
// falling back to the bundled demo set when none are passed. It returns
// a fully initialized App with its own isolated logger. Fatal assembly
// problems (unreadable profile, invalid module set) panic; the CLI
// entrypoint recovers them into a clean exit.
func NewApp(outW io.Writer, cfg *Config, modules ...any) *App {
	// Profile settings may adjust logging, so the profile loads under a
	// bootstrap logger built from the flags alone.
	boot := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), boot)

	prof, err := loadProfile(ctx, cfg.ProfilePath)
	if err != nil {
		panic(fmt.Errorf("failed to load profile: %w", err))
	}

	logLevel := cfg.LogLevel
	if logLevel == "" {
		logLevel = prof.LogLevel
	}
	logFormat := cfg.LogFormat
	if logFormat == "" {
		logFormat = prof.LogFormat
	}
	logger := newLogger(logLevel, logFormat, outW)
	logger.Debug("Logger configured successfully.")

	var opts []kernel.KernelOption
	if prof.Version != "" {
		// Load already rejected malformed version strings.
		opts = append(opts, kernel.WithVersion(prof.Version))
	}
	k := kernel.New(opts...)

	if len(modules) == 0 {
		modules = coreModules()
	}
	for _, mod := range modules {
		if err := k.Register(mod); err != nil {
			panic(err)
		}
	}
	logger.Debug("All modules registered.", "count", len(modules))

	if unmatched := prof.Apply(k.Loader()); len(unmatched) > 0 {
		logger.Warn("Profile mentions modules that are not registered.",
			"modules", unmatched)
	}

	return &App{
		outW:    outW,
		logger:  logger,
		kernel:  k,
		profile: prof,
		config:  cfg,
	}
}

// loadProfile stats the path to pick file or directory loading. An empty
// path yields an empty profile.
func loadProfile(ctx context.Context, path string) (*profile.Profile, error) {
	if path == "" {
		return profile.New(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return profile.LoadDir(ctx, path)
	}
	return profile.Load(ctx, path)
}

// Kernel returns the assembled kernel. This is primarily for testing.
func (a *App) Kernel() *kernel.Kernel {
	return a.kernel
}
