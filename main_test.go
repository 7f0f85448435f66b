package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noenv(string) string { return "" }

// runQuip runs the CLI in a fresh working directory and home, so no config
// file is picked up unless the test writes one.
func runQuip(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	chdir(t, dir)
	return runIn(t, stdin, args...)
}

// runIn runs the CLI in the current working directory.
func runIn(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := run(context.Background(), args, strings.NewReader(stdin), stdout, stderr, noenv)
	return stdout.String(), stderr.String(), err
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := runQuip(t, "", "--version")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "quip version") {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestRunHelp(t *testing.T) {
	stdout, _, err := runQuip(t, "", "--help")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, want := range []string{"quip - An expression engine", "--config", "--step", "describe"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in help, got %q", want, stdout)
		}
	}
}

func TestRunInvalidFlag(t *testing.T) {
	if _, _, err := runQuip(t, "", "--invalid-flag"); err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestRunMissingConfig(t *testing.T) {
	_, _, err := runQuip(t, "", "--config", "/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %q", err.Error())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, _, err := runQuip(t, "", "frobnicate")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}
}

func TestRunExpression(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single send", []string{"-e", "1 add 2 mul 3"}, "9\n"},
		{"locale", []string{"--locale", "de-DE", "-e", "1234567 mul 1"}, "1.234.567\n"},
		{"raw", []string{"--raw", "-e", "1234567 mul 1"}, "1234567\n"},
		{"print", []string{"-e", "hi print"}, "hi\nhi\n"},
		{"several values", []string{"-e", "(1) (2)"}, "1\n2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := runQuip(t, "", tt.args...)
			if err != nil {
				t.Fatalf("run: %v (stderr %q)", err, stderr)
			}
			if stdout != tt.want {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestRunExpressionFailure(t *testing.T) {
	stdout, stderr, err := runQuip(t, "", "-e", "1 bogus")
	if !errors.Is(err, errFailed) {
		t.Fatalf("error = %v, want errFailed", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing", stdout)
	}
	if !strings.Contains(stderr, "unknown selector 'bogus'") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunInvalidLocale(t *testing.T) {
	_, _, err := runQuip(t, "", "--locale", "12345678910", "-e", "1")
	if err == nil || !strings.Contains(err.Error(), "invalid locale") {
		t.Errorf("expected invalid locale error, got %v", err)
	}
}

func TestRunLines(t *testing.T) {
	stdout, _, err := runQuip(t, "1 add 2\n\n2 mul 3\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "3\n6\n" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, stderr, err := runQuip(t, "1 add 2\n1 bogus\n4\n")
	if !errors.Is(err, errFailed) {
		t.Errorf("error = %v, want errFailed", err)
	}
	if stdout != "3\n4\n" || stderr == "" {
		t.Errorf("stdout = %q, stderr = %q", stdout, stderr)
	}
}

func TestRunStep(t *testing.T) {
	stdout, stderr, err := runQuip(t, "\nc\n", "--step", "-e", "1 add 2 add 3 add 4")
	if err != nil {
		t.Fatalf("run: %v (stderr %q)", err, stderr)
	}
	for _, want := range []string{"[1] 1 add 2", "=> 3", "[2] 3 add 3"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout %q missing %q", stdout, want)
		}
	}
	if strings.Contains(stdout, "[3]") {
		t.Errorf("paused after continue: %q", stdout)
	}
	if !strings.HasSuffix(stdout, "10\n") {
		t.Errorf("stdout %q does not end with the value", stdout)
	}
}

func TestRunDefinitions(t *testing.T) {
	dir := t.TempDir()
	defs := filepath.Join(dir, "defs.yaml")
	if err := os.WriteFile(defs, []byte("objects:\n  answer: 41\naliases:\n  plus: add\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := runQuip(t, "", "--defs", defs, "-e", "@answer plus 1")
	if err != nil {
		t.Fatalf("run: %v (stderr %q)", err, stderr)
	}
	if stdout != "42\n" {
		t.Errorf("stdout = %q", stdout)
	}

	if _, _, err := runQuip(t, "", "--defs", filepath.Join(dir, "missing.yaml"), "-e", "1"); err == nil {
		t.Error("expected error for a missing definitions file")
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	chdir(t, dir)
	config := "locale: de-DE\nlogging:\n  quiet: true\n"
	if err := os.WriteFile(filepath.Join(dir, "quip.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runIn(t, "", "-e", "(1000 print) mul 2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "2.000\n" {
		t.Errorf("stdout = %q, want the value only, in German", stdout)
	}
}

func TestDescribe(t *testing.T) {
	stdout, _, err := runQuip(t, "", "describe", "String")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !strings.Contains(stdout, "String") || !strings.Contains(stdout, "upper") {
		t.Errorf("describe String output = %q", stdout)
	}

	stdout, _, err = runQuip(t, "", "describe", "--json", "Tuple")
	if err != nil {
		t.Fatalf("describe --json: %v", err)
	}
	var result struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if result.Kind != "type" || result.Name != "Tuple" {
		t.Errorf("result = %+v", result)
	}

	stdout, _, err = runQuip(t, "", "describe", "--html", "operators")
	if err != nil {
		t.Fatalf("describe --html: %v", err)
	}
	if !strings.Contains(stdout, "<table>") {
		t.Errorf("expected an HTML table, got %q", stdout)
	}

	if _, stderr, err := runQuip(t, "", "describe"); err == nil || !strings.Contains(stderr, "Usage: quip describe") {
		t.Errorf("expected usage error, got %v (stderr %q)", err, stderr)
	}
	if _, _, err := runQuip(t, "", "describe", "nosuchthing"); err == nil || !strings.Contains(err.Error(), "unknown topic") {
		t.Errorf("expected unknown topic error, got %v", err)
	}
}

func TestTrace(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	chdir(t, dir)

	if _, _, err := runIn(t, "", "--trace", "-e", "1 add 2"); err != nil {
		t.Fatalf("traced run: %v", err)
	}

	stdout, _, err := runIn(t, "", "trace", "list")
	if err != nil {
		t.Fatalf("trace list: %v", err)
	}
	if !strings.Contains(stdout, "1 add 2") || !strings.Contains(stdout, "ok") {
		t.Fatalf("trace list = %q", stdout)
	}
	id := strings.Fields(stdout)[0]

	stdout, _, err = runIn(t, "", "trace", "show", id)
	if err != nil {
		t.Fatalf("trace show: %v", err)
	}
	for _, want := range []string{"Source:  1 add 2", "ready", "evaluated", "=> 3"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("trace show missing %q:\n%s", want, stdout)
		}
	}

	file := filepath.Join(dir, "run.jsonl.gz")
	if _, _, err := runIn(t, "", "trace", "export", id, file); err != nil {
		t.Fatalf("trace export: %v", err)
	}
	if info, err := os.Stat(file); err != nil || info.Size() == 0 {
		t.Errorf("export file missing or empty: %v", err)
	}

	if _, _, err := runIn(t, "", "trace", "show", "no-such-run"); err == nil {
		t.Error("expected error for unknown run")
	}
	if _, _, err := runIn(t, "", "trace"); err == nil {
		t.Error("expected usage error")
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
