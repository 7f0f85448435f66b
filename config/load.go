package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "QUIP_CONFIG"

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations; when none exists
// the defaults are returned.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, err
	}
	if path == "" {
		cfg := Defaults()
		cfg.expandHome()
		return cfg, nil
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(interpolateEnv(data, getenv))
	if err != nil {
		return nil, err
	}
	cfg.Path = absPath
	cfg.BaseDir = filepath.Dir(absPath)
	cfg.expandHome()
	cfg.resolvePaths()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without resolving paths.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// resolvePaths makes relative paths relative to the config file's directory.
func (cfg *Config) resolvePaths() {
	for _, p := range []*string{&cfg.Definitions, &cfg.Trace.Path, &cfg.REPL.HistoryFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(cfg.BaseDir, *p)
		}
	}
	switch cfg.Logging.Output {
	case "", "stdout", "stderr":
	default:
		if !filepath.IsAbs(cfg.Logging.Output) {
			cfg.Logging.Output = filepath.Join(cfg.BaseDir, cfg.Logging.Output)
		}
	}
}

// expandHome replaces a leading ~/ in the history file path.
func (cfg *Config) expandHome() {
	rest, ok := strings.CutPrefix(cfg.REPL.HistoryFile, "~/")
	if !ok {
		return
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.REPL.HistoryFile = filepath.Join(home, rest)
	}
}

// resolveConfigPath finds the config file to use. An empty result with no
// error means there is none.
// Search order: explicit path > QUIP_CONFIG env > ./quip.yaml > ~/.config/quip/quip.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s file not found: %s", EnvConfig, envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("quip.yaml"); err == nil {
		return "quip.yaml", nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "quip", "quip.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration for errors. Call it again after
// applying CLI overrides.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Locale != "" {
		if _, err := language.Parse(cfg.Locale); err != nil {
			errs = append(errs, fmt.Sprintf("invalid locale: %s", cfg.Locale))
		}
	}

	switch cfg.Trace.Driver {
	case "", "sqlite":
	case "postgres", "mysql":
		if cfg.Trace.Enabled && cfg.Trace.DSN == "" {
			errs = append(errs, fmt.Sprintf("trace: driver %s requires dsn", cfg.Trace.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("trace: unknown driver %q (must be sqlite, postgres, or mysql)", cfg.Trace.Driver))
	}
	if cfg.Trace.MaxRuns < 0 {
		errs = append(errs, fmt.Sprintf("trace: max_runs must not be negative, got %d", cfg.Trace.MaxRuns))
	}

	if cfg.Watch && cfg.Definitions == "" {
		errs = append(errs, "watch requires a definitions file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
