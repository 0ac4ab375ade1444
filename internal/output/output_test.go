package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/retry"
)

func TestDirWriter_WritesAndSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	w := NewDirWriter(dir)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, "articles/blog/a.html", []byte("<p>a</p>")))
	target := filepath.Join(dir, "articles", "blog", "a.html")
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "<p>a</p>", string(got))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(target, old, old))

	require.NoError(t, w.Write(ctx, "articles/blog/a.html", []byte("<p>a</p>")))
	info, err := os.Stat(target)
	require.NoError(t, err)
	require.WithinDuration(t, old, info.ModTime(), time.Second)

	require.NoError(t, w.Write(ctx, "articles/blog/a.html", []byte("<p>b</p>")))
	got, err = os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "<p>b</p>", string(got))
}

func TestDirWriter_SkipsIdenticalFileFromPreviousRun(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(target, []byte("<p>x</p>"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(target, old, old))

	require.NoError(t, NewDirWriter(dir).Write(context.Background(), "index.html", []byte("<p>x</p>")))

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.WithinDuration(t, old, info.ModTime(), time.Second)
}

func TestDirWriter_Remove(t *testing.T) {
	dir := t.TempDir()
	w := NewDirWriter(dir)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, "index.html", []byte("x")))
	require.NoError(t, w.Remove(ctx, "index.html"))
	_, err := os.Stat(filepath.Join(dir, "index.html"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, w.Remove(ctx, "index.html"))
}

func TestDirWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewDirWriter(t.TempDir()).Write(ctx, "a.html", nil), context.Canceled)
}

func TestDirWriter_WriteFailureIsFileSystemError(t *testing.T) {
	dir := t.TempDir()
	// A regular file where a directory is needed fails on every attempt.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "articles"), []byte("x"), 0o600))

	w := NewDirWriter(dir, WithRetry(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)))
	err := w.Write(context.Background(), "articles/a.html", []byte("<p></p>"))
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryFileSystem))
}

func TestMemorySink(t *testing.T) {
	m := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "a.html", []byte("a")))
	require.NoError(t, m.Write(ctx, "a.html", []byte("a2")))
	got, ok := m.Get("a.html")
	require.True(t, ok)
	require.Equal(t, "a2", string(got))
	require.Equal(t, 2, m.Writes("a.html"))

	m.ResetWrites()
	require.Equal(t, 0, m.Writes("a.html"))

	require.NoError(t, m.Remove(ctx, "a.html"))
	_, ok = m.Get("a.html")
	require.False(t, ok)
	require.Empty(t, m.Files())
}
