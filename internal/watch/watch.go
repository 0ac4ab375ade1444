// Package watch feeds source file changes to the incremental builder one at
// a time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitesmith/internal/incremental"
	"git.home.luguber.info/inful/sitesmith/internal/logfields"
)

// DefaultDebounce is used when no debounce is configured.
const DefaultDebounce = 200 * time.Millisecond

// Updater applies a single change, identified by a project-relative path.
type Updater interface {
	Update(ctx context.Context, path string) (*incremental.Report, error)
}

// Watcher monitors a source directory and forwards debounced changes.
type Watcher struct {
	projectDir string
	srcDir     string
	updater    Updater
	debounce   time.Duration
	logger     *slog.Logger
	fsw        *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for further events before
// flushing pending changes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for srcDir, given relative to projectDir. Paths passed
// to the updater are relative to projectDir and use forward slashes.
func New(projectDir, srcDir string, updater Updater, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}

	w := &Watcher{
		projectDir: absProject,
		srcDir:     filepath.Join(absProject, srcDir),
		updater:    updater,
		debounce:   DefaultDebounce,
		logger:     slog.Default(),
		fsw:        fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is done. Changes are applied serially: a batch is
// flushed once no event arrived for the debounce period, and each path is
// handed to the updater in the order it first changed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	if err := w.addTree(w.srcDir, nil); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.srcDir, err)
	}
	w.logger.Info("Watching for changes", logfields.Path(w.srcDir))

	var pending []string
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			changed := []string{event.Name}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					changed = nil
					if err := w.addTree(event.Name, &changed); err != nil {
						w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			for _, name := range changed {
				rel, ok := w.relative(name)
				if ok && !slices.Contains(pending, rel) {
					pending = append(pending, rel)
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))

		case <-timer.C:
			batch := pending
			pending = nil
			w.flush(ctx, batch)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, batch []string) {
	for _, p := range batch {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.updater.Update(ctx, p); err != nil {
			w.logger.Error("Update failed", logfields.Path(p), logfields.Error(err))
		}
	}
}

// addTree watches dir and every directory below it. When files is non-nil
// the regular files found are appended to it, so changes made before the
// watch was in place are not lost.
func (w *Watcher) addTree(dir string, files *[]string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		if files != nil {
			*files = append(*files, p)
		}
		return nil
	})
}

func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.projectDir, name)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
