package config

// Config represents the complete quip configuration
type Config struct {
	BaseDir     string        `yaml:"-"`           // Directory containing config file, for resolving relative paths
	Path        string        `yaml:"-"`           // Config file the values were read from; empty for defaults
	Definitions string        `yaml:"definitions"` // YAML file of named objects and aliases
	Locale      string        `yaml:"locale"`      // BCP 47 tag for format, title and date parsing (default: "en-US")
	Watch       bool          `yaml:"watch"`       // Reload definitions when the file changes
	REPL        REPLConfig    `yaml:"repl"`
	Engine      EngineConfig  `yaml:"engine"`
	Trace       TraceConfig   `yaml:"trace"`
	Logging     LoggingConfig `yaml:"logging"`
}

// REPLConfig holds interactive console settings
type REPLConfig struct {
	Prompt      string `yaml:"prompt"`       // Primary prompt (default: "quip> ")
	HistoryFile string `yaml:"history_file"` // Line history; empty disables (default: "~/.quip_history")
	Raw         bool   `yaml:"raw"`          // Print inspected values instead of locale-formatted ones
}

// EngineConfig holds evaluation settings
type EngineConfig struct {
	Step bool `yaml:"step"` // Pause at every ready send
}

// TraceConfig holds the step trace store settings
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`   // sqlite, postgres or mysql (default: "sqlite")
	DSN     string `yaml:"dsn"`      // Connection string for postgres and mysql
	Path    string `yaml:"path"`     // SQLite file (default: "quip_trace.db")
	MaxRuns int    `yaml:"max_runs"` // Oldest runs beyond this are pruned; 0 keeps all (default: 1000)
}

// LoggingConfig holds output settings for print and diagnostics
type LoggingConfig struct {
	Output string `yaml:"output"` // "stdout", "stderr", or a file path (default: "stdout")
	Quiet  bool   `yaml:"quiet"`  // Discard print output
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Locale: "en-US",
		REPL: REPLConfig{
			Prompt:      "quip> ",
			HistoryFile: "~/.quip_history",
		},
		Trace: TraceConfig{
			Driver:  "sqlite",
			Path:    "quip_trace.db",
			MaxRuns: 1000,
		},
		Logging: LoggingConfig{
			Output: "stdout",
		},
	}
}
