package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sambeau/quip/pkg/quip/registry"
)

type reload struct {
	defs *registry.Definitions
	err  error
}

func newWatcher(t *testing.T, content string) (*Watcher, *registry.Registry, string, chan reload) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	reg := registry.Default()
	reloads := make(chan reload, 8)
	w, err := New(reg, path, func(defs *registry.Definitions, err error) {
		reloads <- reload{defs, err}
	}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, reg, path, reloads
}

func waitReload(t *testing.T, reloads chan reload) reload {
	t.Helper()
	select {
	case r := <-reloads:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
		return reload{}
	}
}

func TestReload(t *testing.T) {
	w, reg, _, reloads := newWatcher(t, "objects:\n  answer: 42\naliases:\n  plus: add\n")
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if r := waitReload(t, reloads); r.err != nil || r.defs == nil {
		t.Fatalf("reload callback: %+v", r)
	}
	v, ok := reg.Object("answer")
	if !ok || v.Inspect() != "42" {
		t.Errorf("answer = %v, %v", v, ok)
	}
	if reg.Aliases()["plus"] != "add" {
		t.Error("alias plus not installed")
	}
	if w.Seq() != 1 {
		t.Errorf("Seq = %d, want 1", w.Seq())
	}
}

func TestReloadInvalidKeepsPrevious(t *testing.T) {
	w, reg, path, reloads := newWatcher(t, "objects:\n  answer: 42\n")
	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}
	waitReload(t, reloads)

	if err := os.WriteFile(path, []byte("objects: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.Reload(); err == nil {
		t.Fatal("expected a parse error")
	}
	if r := waitReload(t, reloads); r.err == nil {
		t.Error("callback should receive the error")
	}
	if _, ok := reg.Object("answer"); !ok {
		t.Error("previous definitions were dropped")
	}
	if w.Seq() != 1 {
		t.Errorf("Seq = %d, want 1", w.Seq())
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	w, reg, path, reloads := newWatcher(t, "objects:\n  old: 1\n")
	w.Debounce = 20 * time.Millisecond
	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}
	waitReload(t, reloads)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(path, []byte("objects:\n  fresh: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r := waitReload(t, reloads)
	if r.err != nil {
		t.Fatalf("reload: %v", r.err)
	}
	if _, ok := reg.Object("fresh"); !ok {
		t.Error("fresh not bound after change")
	}
	if _, ok := reg.Object("old"); ok {
		t.Error("old still bound after it was removed from the file")
	}
	if got := w.Definitions().Names(); len(got) != 1 || got[0] != "fresh" {
		t.Errorf("Definitions().Names() = %v", got)
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	w, _, path, reloads := newWatcher(t, "objects:\n  a: 1\n")
	w.Debounce = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-reloads:
		t.Errorf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}
