package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseKeepsDefaults(t *testing.T) {
	yamlData := `
repl:
  raw: true
`
	cfg, err := Parse([]byte(yamlData))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if !cfg.REPL.Raw {
		t.Error("Expected repl.raw to be true")
	}
	// Sibling keys of a partially specified section keep their defaults
	if cfg.REPL.Prompt != "quip> " {
		t.Errorf("Expected default prompt, got %q", cfg.REPL.Prompt)
	}
	if cfg.Trace.MaxRuns != 1000 {
		t.Errorf("Expected default max_runs 1000, got %d", cfg.Trace.MaxRuns)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Failed to parse empty config: %v", err)
	}
	if *cfg != *Defaults() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestParseTypeMismatch(t *testing.T) {
	if _, err := Parse([]byte("watch: often")); err == nil {
		t.Error("Expected error for non-boolean watch")
	}
}

func TestConfigRoundTripKeys(t *testing.T) {
	out, err := yaml.Marshal(Defaults())
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(out, &raw); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for _, key := range []string{"definitions", "locale", "watch", "repl", "engine", "trace", "logging"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in marshalled config", key)
		}
	}
	for _, key := range []string{"BaseDir", "basedir", "Path", "path"} {
		if _, ok := raw[key]; ok {
			t.Errorf("Internal field %q should not be marshalled", key)
		}
	}
}
