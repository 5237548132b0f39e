package codec

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/corey/bayes/internal/ports"
)

type jsonCodec struct{}

// JSON is the canonical snapshot encoding. Map keys are written sorted, so
// the same state always produces the same bytes.
var JSON Codec = jsonCodec{}

func (jsonCodec) Name() string { return FormatJSON }

func (jsonCodec) Encode(w io.Writer, snap *ports.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func (jsonCodec) Decode(r io.Reader) (*ports.Snapshot, error) {
	var snap ports.Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after snapshot")
	}
	return &snap, nil
}
