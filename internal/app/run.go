package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
	"github.com/quazardous/qdadm-go/kernel"
)

// Run executes the demo lifecycle: boot, report, shutdown. With DryRun
// set it only resolves and prints the load order; with ShowVersion set
// it prints the effective kernel version and returns.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.ShowVersion {
		fmt.Fprintf(a.outW, "qdadm kernel %s\n", a.kernel.Version())
		return nil
	}

	if a.config.DryRun {
		plan, err := a.kernel.Loader().Plan(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve load order: %w", err)
		}
		fmt.Fprintf(a.outW, "Load order (dry run): %s\n", strings.Join(plan, ", "))
		return nil
	}

	if err := a.kernel.Boot(ctx); err != nil {
		return fmt.Errorf("kernel boot failed: %w", err)
	}
	a.printReport()

	if err := a.kernel.Shutdown(ctx); err != nil {
		return fmt.Errorf("kernel shutdown failed: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// printReport writes the human summary of what the boot produced.
func (a *App) printReport() {
	fmt.Fprintf(a.outW, "qdadm kernel %s\n", a.kernel.Version())
	fmt.Fprintf(a.outW, "Modules loaded: %s\n",
		strings.Join(a.kernel.Loader().Names(), ", "))

	rec, ok := a.kernel.Registrar().(*kernel.Recording)
	if !ok {
		return
	}
	for _, r := range rec.Routes() {
		fmt.Fprintf(a.outW, "  route %-12s -> %v (%s)\n", r.Path, r.Target, r.Module)
	}
	for _, n := range rec.Navs() {
		fmt.Fprintf(a.outW, "  nav   %-12s -> %s (%s)\n", n.Label, n.Path, n.Module)
	}
	for _, z := range rec.Zones() {
		fmt.Fprintf(a.outW, "  zone  %s (%s)\n", z.Name, z.Module)
	}
	for _, b := range rec.Blocks() {
		fmt.Fprintf(a.outW, "  block %v in %s (%s)\n", b.Block, b.Zone, b.Module)
	}
}
