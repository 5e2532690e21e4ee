package kernel

import (
	"fmt"
	"strings"
)

// DuplicateModuleError reports a registration under a name already taken.
type DuplicateModuleError struct {
	Name string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q already registered", e.Name)
}

// InvalidModuleFormatError reports an input the capability-detection
// adapter could not normalize into a module descriptor.
type InvalidModuleFormatError struct {
	Reason string
}

func (e *InvalidModuleFormatError) Error() string {
	return fmt.Sprintf("invalid module format: %s", e.Reason)
}

// ModuleNotFoundError reports a requires entry naming a module nobody
// registered.
type ModuleNotFoundError struct {
	Missing    string
	RequiredBy string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module %q requires unknown module %q", e.RequiredBy, e.Missing)
}

// CircularDependencyError reports a requires cycle. Cycle lists the
// participating module names along the dependency direction.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular module dependency: %s", strings.Join(e.Cycle, " -> "))
}

// ModuleLoadError wraps a connect failure with the failing module's name.
type ModuleLoadError struct {
	Module string
	Err    error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("loading module %q: %v", e.Module, e.Err)
}

func (e *ModuleLoadError) Unwrap() error { return e.Err }

// IncompatibleModuleError reports a module whose compat constraint the
// kernel version does not satisfy.
type IncompatibleModuleError struct {
	Module        string
	Constraint    string
	KernelVersion string
}

func (e *IncompatibleModuleError) Error() string {
	return fmt.Sprintf("module %q requires kernel %q, running %q",
		e.Module, e.Constraint, e.KernelVersion)
}
