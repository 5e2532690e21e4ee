// Package dashboard is a demo module in the bare function shape: the
// loader derives the module name from the function itself.
package dashboard

import (
	"context"

	"github.com/quazardous/qdadm-go/kernel"
)

// Connect is the registration value handed to the kernel. The underlying
// function name gives the module its "dashboard" name.
var Connect kernel.InitFunc = dashboard

func dashboard(ctx context.Context, kc *kernel.Context) error {
	kc.Route("/", "dashboard.Index").
		Nav("Dashboard", "/").
		Zone("header").
		Zone("content").
		Block("header", "dashboard.Clock").
		Block("content", "dashboard.Welcome")
	return nil
}
