// Package app contains the demo application logic. It assembles a kernel
// from a profile and the bundled modules and drives the boot, report and
// shutdown lifecycle, decoupled from any specific entrypoint like a CLI.
package app
