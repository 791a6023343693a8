package watcher

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherSignalsOnChange(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Roots: []string{dir}, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	changes, err := w.Start()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.star"), []byte("x"), 0o644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after file write")
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Roots: []string{dir}, Debounce: 100 * time.Millisecond})
	require.NoError(t, err)

	changes, err := w.Start()
	require.NoError(t, err)
	defer w.Stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "out.star"), []byte{byte(i)}, 0o644))
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after burst")
	}

	// The burst happened within one debounce window; no second signal
	// should be pending.
	select {
	case <-changes:
		t.Fatal("burst was not coalesced")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Roots: []string{dir}, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	changes, err := w.Start()
	require.NoError(t, err)
	defer w.Stop()

	jobDir := filepath.Join(dir, "MotionCorr", "job002")
	require.NoError(t, os.MkdirAll(jobDir, 0o755))

	// Drain the signal for the directory creation itself.
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no signal for directory creation")
	}

	// Give the watcher a moment to register the new directory, then write
	// inside it.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "micrographs.star"), []byte("x"), 0o644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no signal for file inside new directory")
	}
}

func TestWatcherMissingRootIgnored(t *testing.T) {
	w, err := New(Config{Roots: []string{filepath.Join(t.TempDir(), "absent")}})
	require.NoError(t, err)
	_, err = w.Start()
	assert.NoError(t, err, "a root that does not exist yet is not fatal")
	require.NoError(t, w.Stop())
}

func TestWatcherDefaultDebounce(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, time.Second, w.debounce)
	require.NoError(t, w.Stop())
}

func TestWatcherLogsWatchErrors(t *testing.T) {
	var buf logBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	dir := t.TempDir()
	w, err := New(Config{Roots: []string{dir}, Logger: logger})
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)
	defer w.Stop()

	w.fsWatcher.Errors <- errors.New("event queue overflow")

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "event queue overflow")
	}, 5*time.Second, 10*time.Millisecond, "watch error was not logged")
}

// logBuffer is safe to write from the watcher goroutine while the test
// reads it.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
