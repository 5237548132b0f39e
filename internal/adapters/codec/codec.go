// Package codec reads and writes the persistence document of a token store:
//
//	{"names":  {"<class>": {"tokens": {"<token>": n}, "count": total}},
//	 "corpus": {"tokens": {...}, "count": total}}
//
// JSON is the canonical, interoperable encoding. Msgpack carries the same
// field names in a compact binary form.
package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/corey/bayes/internal/ports"
)

// Codec encodes and decodes snapshots.
type Codec interface {
	Name() string
	Encode(w io.Writer, snap *ports.Snapshot) error
	Decode(r io.Reader) (*ports.Snapshot, error)
}

// Format names accepted by ByName and the config file.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// ByName returns the codec for a format name.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", FormatJSON:
		return JSON, nil
	case FormatMsgpack, "mp":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", name)
}

// ForPath picks a codec from the file extension, falling back to fallback
// for unknown extensions.
func ForPath(path string, fallback Codec) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".msgpack", ".mp":
		return Msgpack
	}
	if fallback == nil {
		return JSON
	}
	return fallback
}

// Load decodes and validates a snapshot. A document that fails validation is
// returned as an error; nothing is partially applied. The names table must be
// present, even if empty: a null or foreign document is never an empty model.
func Load(c Codec, r io.Reader) (*ports.Snapshot, error) {
	snap, err := c.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot (%s): %w", c.Name(), err)
	}
	if snap == nil || snap.Names == nil {
		return nil, fmt.Errorf("%w: snapshot has no names table", ports.ErrInvalidArgument)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

// LoadFile reads the snapshot at path.
func LoadFile(c Codec, path string) (*ports.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(c, f)
}

// SaveFile writes snap to path atomically: a temp file in the same directory
// is written, synced and renamed over path.
func SaveFile(c Codec, path string, snap *ports.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op after a successful rename

	if err := c.Encode(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot (%s): %w", c.Name(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
