package config

// ProbeSettings tunes the startup latency measurement.
type ProbeSettings struct {
	// PollIntervalSeconds is how often the probe checks for the replacement
	// pod. Zero means the built-in default.
	PollIntervalSeconds int `yaml:"pollIntervalSeconds,omitempty"`
	// BudgetSeconds is how long the probe waits for the replacement pod
	// before giving up. Zero means the built-in default.
	BudgetSeconds int `yaml:"budgetSeconds,omitempty"`
}

// Settings is the depctl configuration, layered default -> user -> project.
type Settings struct {
	// LogLevel is the default log level; the --log-level flag overrides it.
	LogLevel string `yaml:"logLevel,omitempty"`
	// StateDir overrides where connection, baseline, and latency files live.
	// Empty means the user config directory.
	StateDir string `yaml:"stateDir,omitempty"`

	Probe ProbeSettings `yaml:"probe,omitempty"`
}
