package config

import "os"

// Setting is a process-level input resolved in this order: explicit
// values (call argument, then constructor argument), the positional
// process argument, the environment variable, the default.
type Setting struct {
	Arg     int
	Env     string
	Default string
}

var (
	// ConfigFile is the configuration source handed to the starter.
	ConfigFile = Setting{Arg: 0, Env: "DEEPGRAPH_CONFIG_FILE", Default: "deepgraph.json"}

	// Starter is the module that builds the entry-point component.
	Starter = Setting{Arg: 1, Env: "DEEPGRAPH_STARTER", Default: "root"}
)

// Process holds the positional arguments and environment of the process.
type Process struct {
	Args   []string
	Getenv func(string) string
}

// OS returns the running process's inputs, args being the positional
// arguments after the command name.
func OS(args []string) Process {
	return Process{Args: args, Getenv: os.Getenv}
}

// Resolve returns the first non-empty value by precedence.
func (s Setting) Resolve(p Process, explicit ...string) string {
	for _, v := range explicit {
		if v != "" {
			return v
		}
	}
	if s.Arg >= 0 && s.Arg < len(p.Args) && p.Args[s.Arg] != "" {
		return p.Args[s.Arg]
	}
	if p.Getenv != nil && s.Env != "" {
		if v := p.Getenv(s.Env); v != "" {
			return v
		}
	}
	return s.Default
}
