// Package watch reloads a definitions file into a registry whenever the file
// changes on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/quip/pkg/quip/registry"
)

// DefaultDebounce is how long the file must be quiet before a reload.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc is called after every reload attempt. On failure defs is nil
// and the previous definitions stay in place.
type ReloadFunc func(defs *registry.Definitions, err error)

// Watcher keeps a registry in step with a definitions file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	reg      *registry.Registry
	path     string
	onReload ReloadFunc
	stdout   io.Writer
	stderr   io.Writer

	// Debounce may be changed before Start.
	Debounce time.Duration

	mu   sync.Mutex
	defs *registry.Definitions
	seq  uint64 // incremented on each successful reload
}

// New creates a watcher for the definitions file at path.
func New(reg *registry.Registry, path string, onReload ReloadFunc, stdout, stderr io.Writer) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsWatcher,
		reg:      reg,
		path:     abs,
		onReload: onReload,
		stdout:   stdout,
		stderr:   stderr,
		Debounce: DefaultDebounce,
	}, nil
}

// Start watches the file's directory, so that editors which replace the file
// by renaming are seen too. Events are handled until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logInfo("watching definitions: %s", w.path)
	go w.eventLoop(ctx)
	return nil
}

// eventLoop reloads once the file has been quiet for Debounce.
func (w *Watcher) eventLoop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.Reload(); err == nil {
				w.logInfo("definitions reloaded: %s", w.path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// Reload reads the file and applies it to the registry, replacing what the
// previous load installed.
func (w *Watcher) Reload() error {
	defs, err := registry.LoadDefinitions(w.path)
	if err != nil {
		w.logError("%v", err)
		if w.onReload != nil {
			w.onReload(nil, err)
		}
		return err
	}

	w.mu.Lock()
	defs.Apply(w.reg, w.defs)
	w.defs = defs
	w.seq++
	w.mu.Unlock()

	if w.onReload != nil {
		w.onReload(defs, nil)
	}
	return nil
}

// Definitions returns the definitions currently applied.
func (w *Watcher) Definitions() *registry.Definitions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.defs
}

// Seq returns the number of successful loads.
func (w *Watcher) Seq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	if w.stdout != nil {
		fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
	}
}

func (w *Watcher) logError(format string, args ...any) {
	if w.stderr != nil {
		fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
	}
}
