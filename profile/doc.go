// Package profile loads HCL kernel profiles: per-module enablement,
// priority and option overrides plus process-level log settings.
//
// A profile can span several files. LoadDir merges them in lexical path
// order: later files win for scalar settings, module blocks merge
// field-wise and their options merge per top-level key. Apply pushes the
// merged overrides into a module loader.
package profile
