package eop

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/star/framerot/internal/metrics"
)

// LoadFile parses and builds the EOP file at path.
func LoadFile(path string, logger *slog.Logger) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading EOP file: %w", err)
	}
	return LoadBytes(raw, logger)
}

// LoadBytes parses and builds an in-memory EOP file.
func LoadBytes(raw []byte, logger *slog.Logger) (Data, error) {
	t, err := Parse(bytes.NewReader(raw), logger)
	if err != nil {
		return nil, err
	}
	return Build(t)
}

// ReloadFunc is called after every reload attempt.
type ReloadFunc func(path string, d Data, err error)

// Watcher reloads local EOP files into a Store whenever they change.
type Watcher struct {
	paths    []string
	store    *Store
	logger   *slog.Logger
	delay    time.Duration
	onReload ReloadFunc

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

// NewWatcher watches the given files. onReload may be nil.
func NewWatcher(paths []string, store *Store, logger *slog.Logger, onReload ReloadFunc) *Watcher {
	return &Watcher{
		paths:    paths,
		store:    store,
		logger:   logger,
		delay:    250 * time.Millisecond,
		onReload: onReload,
		debounce: make(map[string]*time.Timer),
	}
}

// Run loads every file once, then reloads on write, create or rename until
// ctx is cancelled. Parent directories are watched so that files replaced
// atomically are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	watched := make(map[string]string, len(w.paths))
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		watched[abs] = p
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fw.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			dirs[dir] = true
		}
		w.reload(abs)
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[name]; !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("EOP watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t := w.debounce[path]; t != nil {
		t.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.delay, func() { w.reload(path) })
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.debounce {
		t.Stop()
	}
}

func (w *Watcher) reload(path string) {
	d, err := LoadFile(path, w.logger)
	metrics.IncEOPReload("file", err == nil)
	if err != nil {
		w.logger.Warn("EOP reload failed, keeping previous data", "path", path, "error", err)
	} else {
		install(w.store, d, "file:"+path, time.Now(), w.logger)
	}
	if w.onReload != nil {
		w.onReload(path, d, err)
	}
}
