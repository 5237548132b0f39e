package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/corey/bayes/internal/adapters/codec"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBbolt  = "bbolt"
	BackendRedis  = "redis"
)

// Config is the project configuration read from .bayes/config.toml.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Tokenizer TokenizerConfig `toml:"tokenizer"`
	Snapshot  SnapshotConfig  `toml:"snapshot"`
	Daemon    DaemonConfig    `toml:"daemon"`
	Train     TrainConfig     `toml:"train"`
}

// StorageConfig selects and configures the token store.
type StorageConfig struct {
	Backend   string      `toml:"backend"`   // memory | bbolt | redis
	Path      string      `toml:"path"`      // bbolt file, relative to the project root
	Namespace string      `toml:"namespace"` // model name inside the backend
	Redis     RedisConfig `toml:"redis"`
}

// RedisConfig is used when Storage.Backend is "redis".
type RedisConfig struct {
	Addr   string `toml:"addr"`
	DB     int    `toml:"db"`
	Prefix string `toml:"prefix"`
}

// TokenizerConfig selects the tokenizer. Phrases only apply to kind "phrase".
type TokenizerConfig struct {
	Kind    string   `toml:"kind"`
	Phrases []string `toml:"phrases"`
}

// SnapshotConfig sets the default export format when a file extension does
// not decide it.
type SnapshotConfig struct {
	Format string `toml:"format"`
}

// DaemonConfig configures the long-running daemon.
type DaemonConfig struct {
	WatchDir string `toml:"watch_dir"` // <dir>/<class>/<file> trained on change; empty disables
	LogLevel string `toml:"log_level"` // debug | info | warn | error
	HTTPAddr string `toml:"http_addr"` // localhost JSON API, e.g. 127.0.0.1:8765; empty disables
}

// TrainConfig configures bulk training.
type TrainConfig struct {
	Jobs int `toml:"jobs"` // parallel tokenizer workers; 0 = GOMAXPROCS
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:   BackendBbolt,
			Path:      filepath.Join(".bayes", "bayes.db"),
			Namespace: "default",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "bayes",
			},
		},
		Tokenizer: TokenizerConfig{Kind: TokenizerWord},
		Snapshot:  SnapshotConfig{Format: codec.FormatJSON},
		Daemon:    DaemonConfig{LogLevel: "info"},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults. Unknown keys are rejected so typos don't silently fall back.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendBbolt, BackendRedis:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendBbolt && c.Storage.Path == "" {
		return fmt.Errorf("storage.path: required for bbolt")
	}
	if c.Storage.Backend == BackendRedis && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("storage.redis.addr: required for redis")
	}
	if c.Storage.Redis.DB < 0 {
		return fmt.Errorf("storage.redis.db: must be >= 0")
	}
	if _, err := NewTokenizer(c.Tokenizer); err != nil {
		return fmt.Errorf("tokenizer: %w", err)
	}
	if _, err := codec.ByName(c.Snapshot.Format); err != nil {
		return fmt.Errorf("snapshot.format: %w", err)
	}
	if _, err := ParseLevel(c.Daemon.LogLevel); err != nil {
		return fmt.Errorf("daemon.log_level: %w", err)
	}
	if c.Daemon.HTTPAddr != "" {
		if _, _, err := net.SplitHostPort(c.Daemon.HTTPAddr); err != nil {
			return fmt.Errorf("daemon.http_addr: %w", err)
		}
	}
	if c.Train.Jobs < 0 {
		return fmt.Errorf("train.jobs: must be >= 0")
	}
	return nil
}

// Encode writes the configuration as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return lvl, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}
