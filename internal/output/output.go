// Package output writes rendered documents.
package output

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/inful/mdfp"

	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/logfields"
	"git.home.luguber.info/inful/sitesmith/internal/metrics"
	"git.home.luguber.info/inful/sitesmith/internal/retry"
)

// Sink receives rendered outputs addressed by slash-separated relative names.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
}

// DirWriter writes outputs below a directory. Content fingerprints of
// everything it has seen are kept so rewriting identical content leaves the
// file (and its modification time) alone.
type DirWriter struct {
	root     string
	recorder metrics.Recorder
	logger   *slog.Logger
	retry    retry.Policy

	mu           sync.Mutex
	fingerprints map[string]string
}

// DirOption configures a DirWriter.
type DirOption func(*DirWriter)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) DirOption {
	return func(w *DirWriter) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithLogger sets the writer logger.
func WithLogger(l *slog.Logger) DirOption {
	return func(w *DirWriter) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetry sets the backoff used when creating or writing a file fails.
func WithRetry(p retry.Policy) DirOption {
	return func(w *DirWriter) {
		if p.Validate() == nil {
			w.retry = p
		}
	}
}

// NewDirWriter returns a writer rooted at dir.
func NewDirWriter(dir string, opts ...DirOption) *DirWriter {
	w := &DirWriter{
		root:         dir,
		recorder:     metrics.NoopRecorder{},
		logger:       slog.Default(),
		retry:        retry.DefaultPolicy(),
		fingerprints: map[string]string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the output directory.
func (w *DirWriter) Root() string { return w.root }

func fingerprint(data []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(data))
}

// Write stores data at name unless the file already holds the same content.
func (w *DirWriter) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(w.root, filepath.FromSlash(name))
	fp := fingerprint(data)

	w.mu.Lock()
	known, seen := w.fingerprints[name]
	w.mu.Unlock()
	if !seen {
		if existing, err := os.ReadFile(target); err == nil {
			known, seen = fingerprint(existing), true
		}
	}
	if seen && known == fp {
		w.recorder.IncOutput(metrics.OutputUnchanged)
		w.remember(name, fp)
		w.logger.Debug("Output unchanged", logfields.Output(name))
		return nil
	}

	if err := retry.Do(ctx, w.retry, func() error { return writeFile(target, data) }); err != nil {
		return err
	}
	w.remember(name, fp)
	w.recorder.IncOutput(metrics.OutputWritten)
	w.logger.Debug("Output written", logfields.Output(name))
	return nil
}

func writeFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create output directory").
			WithContext("path", target).
			Build()
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write output").
			WithContext("path", target).
			Build()
	}
	return nil
}

// Remove deletes the output at name. A missing file is not an error.
func (w *DirWriter) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(w.root, filepath.FromSlash(name))
	w.mu.Lock()
	delete(w.fingerprints, name)
	w.mu.Unlock()

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "remove output").
			WithContext("path", target).
			Build()
	}
	w.recorder.IncOutput(metrics.OutputRemoved)
	return nil
}

func (w *DirWriter) remember(name, fp string) {
	w.mu.Lock()
	w.fingerprints[name] = fp
	w.mu.Unlock()
}

// MemorySink keeps outputs in memory. It is used by inspect and by tests.
type MemorySink struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes map[string]int
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: map[string][]byte{}, writes: map[string]int{}}
}

func (m *MemorySink) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	m.writes[name]++
	return nil
}

func (m *MemorySink) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

// Get returns the content stored at name.
func (m *MemorySink) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[name]
	return b, ok
}

// Files returns a copy of everything stored.
func (m *MemorySink) Files() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.files)
}

// Writes returns how often name was written.
func (m *MemorySink) Writes(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[name]
}

// ResetWrites clears the write counters.
func (m *MemorySink) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = map[string]int{}
}
