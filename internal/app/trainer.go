package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"github.com/corey/bayes/internal/domain/classifier"
)

// maxTrainFile bounds the size of one training document. Larger files are
// skipped rather than read into memory.
const maxTrainFile = 32 << 20

// TrainResult holds statistics from a TrainDir operation.
type TrainResult struct {
	Files   int            // documents trained
	Tokens  int            // tokens added across all classes
	Skipped []string       // paths skipped (hidden, no class dir, too large)
	Classes map[string]int // class -> documents trained
}

// trainFile is one document under <dir>/<class>/.
type trainFile struct {
	class string
	path  string
}

// ClassOf returns the class a training file belongs to: the first path
// component below dir. ok is false for files directly in dir or outside it.
func ClassOf(dir, path string) (class string, ok bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 || parts[0] == "" || strings.HasPrefix(parts[0], ".") {
		return "", false
	}
	return parts[0], true
}

// TrainDir trains every regular file under <dir>/<class>/ into <class>.
// Files are read and tokenized by up to jobs workers (0 = GOMAXPROCS); each
// document's counts are aggregated before they reach the store. The first
// error cancels the remaining work; documents already trained stay trained.
func TrainDir(ctx context.Context, clf *classifier.Classifier, dir string, jobs int) (*TrainResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	files, skipped, err := collectTrainFiles(absDir)
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	res := &TrainResult{Skipped: skipped, Classes: make(map[string]int)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := TrainFile(clf, f.class, f.path)
			if err != nil {
				return err
			}
			mu.Lock()
			res.Files++
			res.Tokens += n
			res.Classes[f.class]++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

// TrainFile reads one document and trains it into class. Returns the number
// of tokens added.
func TrainFile(clf *classifier.Classifier, class, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	tokens := clf.Tokenize(string(data))
	counts, total, err := aggregate(tokens)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := clf.TrainCounts(class, counts); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return total, nil
}

// aggregate folds a token sequence into per-token counts.
func aggregate(tokens []string) (map[string]uint32, int, error) {
	raw := make(map[string]int, len(tokens))
	total := 0
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		raw[tok]++
		total++
	}
	counts := make(map[string]uint32, len(raw))
	for tok, n := range raw {
		c, err := safecast.Conv[uint32](n)
		if err != nil {
			return nil, 0, fmt.Errorf("token %q: %w", tok, err)
		}
		counts[tok] = c
	}
	return counts, total, nil
}

func collectTrainFiles(dir string) ([]trainFile, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []trainFile
	var skipped []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable
		}
		if path == dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			skipped = append(skipped, path)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		class, ok := ClassOf(dir, path)
		if !ok {
			skipped = append(skipped, path)
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.Size() > maxTrainFile {
			skipped = append(skipped, path)
			return nil
		}
		files = append(files, trainFile{class: class, path: path})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return files, skipped, nil
}
