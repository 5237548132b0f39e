// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the bayes daemon (create, start,
// stop) and the same model operations for CLI commands that run without one.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/corey/bayes/internal/adapters/bbolt"
	"github.com/corey/bayes/internal/adapters/codec"
	fsw "github.com/corey/bayes/internal/adapters/fsnotify"
	"github.com/corey/bayes/internal/adapters/memory"
	redisstore "github.com/corey/bayes/internal/adapters/redis"
	"github.com/corey/bayes/internal/adapters/socket"
	"github.com/corey/bayes/internal/adapters/web"
	"github.com/corey/bayes/internal/domain/classifier"
	"github.com/corey/bayes/internal/ports"
)

// Options configures New.
type Options struct {
	ProjectRoot string
	Config      *Config      // nil = load .bayes/config.toml
	Logger      *slog.Logger // nil = discard
}

// Store is a token store that can also export, import and be closed.
type Store interface {
	ports.TokenStore
	ports.Snapshotter
}

// namespaceDeleter is implemented by persistent stores that can drop a
// whole model in one call.
type namespaceDeleter interface {
	DeleteNamespace() error
}

// App is the fully wired model: config, store, classifier and, when started
// as a daemon, the socket server and training-directory watcher.
type App struct {
	Paths      *Paths
	Config     Config
	Store      Store
	Classifier *classifier.Classifier
	Server     *socket.Server
	WebServer  *web.Server   // nil unless daemon.http_addr is set
	Watcher    ports.Watcher // nil until Start, and only with daemon.watch_dir
	Logger     *slog.Logger

	closeStore func() error
	watchDir   string
	stopOnce   sync.Once
}

// New creates an App with all dependencies wired. Does not start services.
func New(opts Options) (*App, error) {
	if opts.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	paths := NewPaths(opts.ProjectRoot)

	var cfg Config
	if opts.Config != nil {
		cfg = *opts.Config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else {
		loaded, err := LoadConfig(paths.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, closeStore, err := openStore(cfg.Storage, paths)
	if err != nil {
		return nil, err
	}

	tok, err := NewTokenizer(cfg.Tokenizer)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	clf, err := classifier.New(store, classifier.WithTokenizer(tok))
	if err != nil {
		closeStore()
		return nil, err
	}

	a := &App{
		Paths:      paths,
		Config:     cfg,
		Store:      store,
		Classifier: clf,
		Logger:     logger,
		closeStore: closeStore,
		watchDir:   paths.Resolve(cfg.Daemon.WatchDir),
	}
	a.Server = socket.NewServer(a, socket.SocketPath(opts.ProjectRoot), logger)
	if cfg.Daemon.HTTPAddr != "" {
		a.WebServer = web.NewServer(a, logger)
	}
	return a, nil
}

func openStore(cfg StorageConfig, paths *Paths) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), noop, nil
	case BackendBbolt:
		path := paths.Resolve(cfg.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, err
		}
		s, err := bbolt.NewStore(path, cfg.Namespace)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return s, s.Close, nil
	case BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err := redisstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.DB, redisstore.Config{
			Prefix:    cfg.Redis.Prefix,
			Namespace: cfg.Namespace,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Start runs the socket server and, when configured, the training watcher.
func (a *App) Start() error {
	if err := a.Paths.EnsureDirs(); err != nil {
		return err
	}
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		a.Logger.Warn("write pid file", "path", a.Paths.PIDFile, "err", err)
	}

	// HTTP and the watcher are optional: neither may take the daemon down.
	if a.WebServer != nil {
		if err := a.WebServer.Start(a.Config.Daemon.HTTPAddr); err != nil {
			a.Logger.Warn("http api unavailable", "addr", a.Config.Daemon.HTTPAddr, "err", err)
			a.WebServer = nil
		}
	}
	if a.watchDir != "" {
		if err := a.startWatcher(); err != nil {
			a.Logger.Warn("training watcher unavailable", "dir", a.watchDir, "err", err)
		}
	}
	a.Logger.Info("daemon started",
		"socket", a.Server.Addr(),
		"backend", a.Config.Storage.Backend,
		"tokenizer", a.Config.Tokenizer.Kind,
		"watch_dir", a.watchDir,
		"http", a.httpAddr())
	return nil
}

func (a *App) startWatcher() error {
	w, err := fsw.NewWatcher(0)
	if err != nil {
		return err
	}
	if err := w.Watch(a.watchDir, a.onFileChanged); err != nil {
		w.Stop()
		return err
	}
	a.Watcher = w
	return nil
}

func (a *App) httpAddr() string {
	if a.WebServer == nil {
		return ""
	}
	return a.WebServer.Addr()
}

// Stop shuts down services and releases the store. Idempotent.
func (a *App) Stop() error {
	var errs []error
	a.stopOnce.Do(func() {
		if a.Watcher != nil {
			errs = append(errs, a.Watcher.Stop())
		}
		if a.WebServer != nil {
			errs = append(errs, a.WebServer.Stop())
		}
		errs = append(errs, a.Server.Stop())
		a.Paths.CleanEphemeral()
		errs = append(errs, a.close())
		a.Logger.Info("daemon stopped")
	})
	return errors.Join(errs...)
}

// Close releases the classifier and store without touching the server.
// Used by CLI commands that open the model directly.
func (a *App) Close() error {
	var err error
	a.stopOnce.Do(func() { err = a.close() })
	return err
}

func (a *App) close() error {
	return errors.Join(a.Classifier.Close(), a.closeStore())
}

// Train tokenizes text once and adds the aggregated counts to class.
// Implements socket.AppQueries.
func (a *App) Train(class, text string) (socket.TrainResult, error) {
	if text == "" {
		return socket.TrainResult{}, fmt.Errorf("%w: empty text", ports.ErrInvalidArgument)
	}
	counts, total, err := aggregate(a.Classifier.Tokenize(text))
	if err != nil {
		return socket.TrainResult{}, err
	}
	if err := a.Classifier.TrainCounts(class, counts); err != nil {
		return socket.TrainResult{}, err
	}
	return socket.TrainResult{Class: class, Tokens: total}, nil
}

// Guess ranks the classes for p.Text, optionally with the per-token scores
// of one class. Implements socket.AppQueries.
func (a *App) Guess(p socket.GuessParams) (socket.GuessResult, error) {
	guesses, err := a.Classifier.Guess(p.Text)
	if err != nil {
		return socket.GuessResult{}, err
	}
	if p.Limit > 0 && len(guesses) > p.Limit {
		guesses = guesses[:p.Limit]
	}
	res := socket.GuessResult{Guesses: entries(guesses), Count: len(guesses)}
	if p.Explain != "" {
		perToken, err := a.Classifier.TokenGuesses(p.Explain, p.Text)
		if err != nil {
			return socket.GuessResult{}, err
		}
		res.Tokens = entries(perToken)
	}
	return res, nil
}

func entries(guesses []classifier.Guess) []socket.GuessEntry {
	out := make([]socket.GuessEntry, len(guesses))
	for i, g := range guesses {
		out[i] = socket.GuessEntry{Name: g.Name(), Probability: g.Probability()}
	}
	return out
}

// Count reads a count from the store. Implements socket.AppQueries.
func (a *App) Count(class, token string) (uint64, error) {
	return a.Store.TokenCount(class, token)
}

// Probability reads a token probability. Implements socket.AppQueries.
func (a *App) Probability(class, token string) (float64, error) {
	return a.Store.TokenProbability(class, token)
}

// Names lists the trained classes. Implements socket.AppQueries.
func (a *App) Names() ([]string, error) {
	return a.Store.Names()
}

// Export snapshots the model. Implements socket.AppQueries.
func (a *App) Export() (*ports.Snapshot, error) {
	return a.Store.Snapshot()
}

// Import replaces the model with snap. Implements socket.AppQueries.
func (a *App) Import(snap *ports.Snapshot) (socket.ImportResult, error) {
	if err := a.Store.Restore(snap); err != nil {
		return socket.ImportResult{}, err
	}
	a.Logger.Info("model imported", "classes", len(snap.Names), "corpus_tokens", snap.Corpus.Count)
	return socket.ImportResult{Classes: len(snap.Names)}, nil
}

// Wipe deletes every class and the corpus. Implements socket.AppQueries.
func (a *App) Wipe() error {
	if d, ok := a.Store.(namespaceDeleter); ok {
		if err := d.DeleteNamespace(); err != nil {
			return err
		}
	} else if err := a.Store.Restore(ports.NewSnapshot()); err != nil {
		return err
	}
	a.Logger.Info("model wiped")
	return nil
}

// Health summarizes the model. Implements socket.AppQueries.
func (a *App) Health() (socket.HealthResult, error) {
	names, err := a.Store.Names()
	if err != nil {
		return socket.HealthResult{}, err
	}
	var total uint64
	for _, name := range names {
		n, err := a.Store.TokenCount(name, "")
		if err != nil {
			return socket.HealthResult{}, err
		}
		total += n
	}
	h := socket.HealthResult{
		Status:       "ok",
		Backend:      a.Config.Storage.Backend,
		Tokenizer:    a.Config.Tokenizer.Kind,
		Classes:      len(names),
		CorpusTokens: total,
	}
	if a.Watcher != nil {
		h.WatchDir = a.watchDir
	}
	return h, nil
}

// ExportFile writes the model to path. The codec is picked from the file
// extension, falling back to snapshot.format.
func (a *App) ExportFile(path string) (*ports.Snapshot, error) {
	c, err := a.codecFor(path)
	if err != nil {
		return nil, err
	}
	snap, err := a.Export()
	if err != nil {
		return nil, err
	}
	return snap, codec.SaveFile(c, path, snap)
}

// ImportFile replaces the model with the document at path.
func (a *App) ImportFile(path string) (socket.ImportResult, error) {
	c, err := a.codecFor(path)
	if err != nil {
		return socket.ImportResult{}, err
	}
	snap, err := codec.LoadFile(c, path)
	if err != nil {
		return socket.ImportResult{}, err
	}
	return a.Import(snap)
}

func (a *App) codecFor(path string) (codec.Codec, error) {
	fallback, err := codec.ByName(a.Config.Snapshot.Format)
	if err != nil {
		return nil, err
	}
	return codec.ForPath(path, fallback), nil
}

// Compile-time interface check.
var _ socket.AppQueries = (*App)(nil)
