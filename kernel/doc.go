// Package kernel orchestrates pluggable modules for an in-process admin
// framework. A Loader accepts heterogeneous module shapes, normalizes
// them once through capability detection, resolves a dependency-ordered
// load sequence (lowest priority first, registration order breaking
// ties) and drives sequential connect/disconnect lifecycles. Each module
// connects through a Context binding the shared signal bus, hook
// registry and deferred registry, with auto-tracked cleanup and fluent
// UI registration forwarding.
//
// The Kernel type assembles all of it and emits kernel:ready once every
// module is up.
package kernel
