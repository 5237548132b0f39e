package fsnotify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuiet = 30 * time.Millisecond

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func startWatcher(t *testing.T, dir string) (*Watcher, chan string) {
	t.Helper()
	w, err := NewWatcher(testQuiet)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 16)
	require.NoError(t, w.Watch(dir, func(path string) { changed <- path }))
	time.Sleep(50 * time.Millisecond)
	return w, changed
}

func TestWatcher_DetectsNewFileInClassDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "spam"), 0o755))
	_, changed := startWatcher(t, dir)

	file := filepath.Join(dir, "spam", "offer.txt")
	require.NoError(t, os.WriteFile(file, []byte("buy now"), 0o644))

	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok, "expected callback for new file")
	assert.Equal(t, file, path)
}

func TestWatcher_CoalescesBurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ham"), 0o755))
	_, changed := startWatcher(t, dir)

	file := filepath.Join(dir, "ham", "note.txt")
	f, err := os.Create(file)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("meeting agenda ")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	_, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok)
	_, again := waitForCallback(changed, 200*time.Millisecond)
	assert.False(t, again, "a burst of writes must fire once")
}

func TestWatcher_NewClassDirectory(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir)

	classDir := filepath.Join(dir, "german")
	require.NoError(t, os.Mkdir(classDir, 0o755))
	time.Sleep(50 * time.Millisecond)

	file := filepath.Join(classDir, "text.txt")
	require.NoError(t, os.WriteFile(file, []byte("bremsen"), 0o644))

	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok, "files in a new class directory must be seen")
	assert.Equal(t, file, path)
}

func TestWatcher_IgnoresHiddenAndSwapFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "spam"), 0o755))
	_, changed := startWatcher(t, dir)

	os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644)
	os.WriteFile(filepath.Join(dir, "spam", ".hidden"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "spam", "draft.txt.swp"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "spam", "draft.txt~"), []byte("x"), 0o644)

	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "should not have received callback for ignored files")

	file := filepath.Join(dir, "spam", "real.txt")
	require.NoError(t, os.WriteFile(file, []byte("casino"), 0o644))
	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, file, path)
}

func TestWatcher_IgnoresRemove(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, changed := startWatcher(t, dir)

	require.NoError(t, os.Remove(file))
	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "removing a file cannot untrain it")
}

func TestWatcher_StopCleanup(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(testQuiet)
	require.NoError(t, err)

	callCount := 0
	var mu sync.Mutex
	require.NoError(t, w.Watch(dir, func(string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	}))
	time.Sleep(50 * time.Millisecond)

	// Pending timers are cancelled by Stop.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "Stop must be idempotent")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "after.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, callCount)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := NewWatcher(0)
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, DefaultQuiet, w.quiet)
	require.Error(t, w.Watch(filepath.Join(t.TempDir(), "nope"), func(string) {}))
}

func TestShouldIgnorePath(t *testing.T) {
	root := "/data"
	tests := []struct {
		path string
		want bool
	}{
		{"/data/spam/a.txt", false},
		{"/data/spam/.a.txt", true},
		{"/data/.cache/spam/a.txt", true},
		{"/data/spam/a.txt~", true},
		{"/data/spam/a.swp", true},
		{"/data/spam/a.part", true},
		{"/data", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIgnorePath(root, tt.path), tt.path)
	}
}
