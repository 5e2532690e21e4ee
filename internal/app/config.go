package app

// Config holds everything an App needs to assemble and run the kernel.
type Config struct {
	// ProfilePath points at a .hcl profile file or a directory of them.
	// Empty runs with compiled-in defaults only.
	ProfilePath string

	// LogFormat and LogLevel override the profile's log settings when
	// non-empty.
	LogFormat string
	LogLevel  string

	// DryRun resolves and prints the load order without connecting.
	DryRun bool

	// ShowVersion prints the effective kernel version instead of booting.
	ShowVersion bool
}
