// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a training directory laid out as <dir>/<class>/<file>,
// filters out hidden entries and editor temp files, and waits for a file to go
// quiet before reporting it (editors often trigger several writes per save).
package fsnotify

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long a file must see no events before onChange fires.
const DefaultQuiet = 100 * time.Millisecond

// Suffixes of editor swap, backup and partial-download files.
var ignoreSuffixes = []string{"~", ".swp", ".swx", ".tmp", ".part", ".crdownload"}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw    *fsnotify.Watcher
	quiet time.Duration
	done  chan struct{}

	mu      sync.RWMutex // held for reading while onChange runs
	stopped bool

	tmu     sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a new file system watcher. quiet <= 0 selects DefaultQuiet.
func NewWatcher(quiet time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Watcher{
		fw:      fw,
		quiet:   quiet,
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring dir recursively.
// onChange is called with the absolute path of each created or written file.
func (w *Watcher) Watch(dir string, onChange func(filePath string)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}

	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			if path != absPath && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.loop(absPath, onChange)
	return nil
}

func (w *Watcher) loop(root string, onChange func(string)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			path := event.Name
			if shouldIgnorePath(root, path) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.IsDir() {
				// New class directory: watch it and pick up files already in it.
				if event.Has(fsnotify.Create) {
					w.addTree(root, path, onChange)
				}
				continue
			}
			if info.Mode().IsRegular() {
				w.schedule(path, onChange)
			}

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// fsnotify recovers from queue overflows on its own.

		case <-w.done:
			return
		}
	}
}

// addTree watches a directory created after Watch started and schedules the
// files that landed in it before the watch was added.
func (w *Watcher) addTree(root, dir string, onChange func(string)) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || shouldIgnorePath(root, path) {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			w.fw.Add(path)
		} else if d.Type().IsRegular() {
			w.schedule(path, onChange)
		}
		return nil
	})
}

// schedule (re)arms the quiet timer for path.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.tmu.Lock()
	defer w.tmu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.quiet)
		return
	}
	w.pending[path] = time.AfterFunc(w.quiet, func() {
		w.tmu.Lock()
		delete(w.pending, path)
		w.tmu.Unlock()
		w.fire(path, onChange)
	})
}

func (w *Watcher) fire(path string, onChange func(string)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	onChange(path)
}

// Stop ends monitoring and releases all resources. It waits for a running
// onChange to return. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)

	w.tmu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.tmu.Unlock()

	return w.fw.Close()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// shouldIgnorePath returns true if path should not trigger onChange: any
// hidden component below root, or a swap/backup file name.
func shouldIgnorePath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if isHidden(part) {
			return true
		}
	}
	base := filepath.Base(path)
	for _, suf := range ignoreSuffixes {
		if strings.HasSuffix(base, suf) {
			return true
		}
	}
	return false
}
