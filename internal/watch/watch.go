// Package watch reruns a build when sources change and, optionally, periodically.
// Builds never overlap; changes observed while a build runs are dropped since the
// build itself writes into the watched tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

const defaultDebounce = 500 * time.Millisecond

// Config holds the parameters of a Watcher.
type Config struct {
	Root     string
	Debounce time.Duration // quiet period after the last change; defaults to 500ms
	Interval time.Duration // periodic rebuild; zero disables it

	// Suffixes selects the files whose changes trigger a build. Empty means all.
	Suffixes []string
	// Ignore leaves paths relative to Root out. It may be nil.
	Ignore func(rel string, isDir bool) bool

	// Build runs one pass. reason is "change", "interval" or "initial".
	Build func(ctx context.Context, reason string) error
}

// Watcher monitors the source tree.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	trigger  chan string
	building atomic.Bool
}

// New registers every directory below cfg.Root that is not ignored.
func New(cfg Config) (*Watcher, error) {
	if cfg.Build == nil {
		return nil, fmt.Errorf("watch: build function is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &Watcher{cfg: cfg, fsw: fsw, trigger: make(chan string, 1)}
	if err := w.addDirectories(cfg.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run builds once and then on every trigger until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	if w.cfg.Interval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("watch: create scheduler: %w", err)
		}
		if _, err := s.NewJob(
			gocron.DurationJob(w.cfg.Interval),
			gocron.NewTask(w.fire, "interval"),
			gocron.WithName("periodic-build"),
		); err != nil {
			return fmt.Errorf("watch: schedule periodic build: %w", err)
		}
		s.Start()
		defer func() { _ = s.Shutdown() }()
		slog.Info("Scheduled periodic build", logfields.Duration(w.cfg.Interval))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.events(ctx)
	}()
	defer wg.Wait()

	w.run(ctx, "initial")
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-w.trigger:
			w.run(ctx, reason)
		}
	}
}

func (w *Watcher) run(ctx context.Context, reason string) {
	w.building.Store(true)
	defer w.building.Store(false)
	slog.Info("Starting build", slog.String("reason", reason))
	if err := w.cfg.Build(ctx, reason); err != nil {
		slog.Error("Build failed", logfields.Error(err))
	}
}

// fire requests a build. A pending request absorbs further ones.
func (w *Watcher) fire(reason string) {
	select {
	case w.trigger <- reason:
	default:
	}
}

func (w *Watcher) events(ctx context.Context) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if w.building.Load() || !w.relevant(evt.Name) {
				continue
			}
			slog.Debug("Source changed", logfields.Path(evt.Name), slog.String("op", evt.Op.String()))
			mu.Lock()
			if timer == nil {
				timer = time.AfterFunc(w.cfg.Debounce, func() { w.fire("change") })
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return false
	}
	if w.ignored(rel, false) {
		return false
	}
	return len(w.cfg.Suffixes) == 0 || slices.Contains(w.cfg.Suffixes, filepath.Ext(path))
}

func (w *Watcher) ignored(rel string, isDir bool) bool {
	return w.cfg.Ignore != nil && rel != "." && w.cfg.Ignore(rel, isDir)
}

func (w *Watcher) addDirectories(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping inaccessible path", logfields.Path(path), logfields.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.cfg.Root, path)
		if relErr != nil || w.ignored(rel, true) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addDirectories(path); err != nil {
		slog.Warn("Cannot watch new directory", logfields.Path(path), logfields.Error(err))
	}
}
