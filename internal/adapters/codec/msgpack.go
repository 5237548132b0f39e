package codec

import (
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/corey/bayes/internal/ports"
)

type msgpackCodec struct{}

// Msgpack is the compact snapshot encoding, roughly half the size of JSON
// for large vocabularies.
var Msgpack Codec = msgpackCodec{}

func (msgpackCodec) Name() string { return FormatMsgpack }

func (msgpackCodec) Encode(w io.Writer, snap *ports.Snapshot) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc.Encode(snap)
}

func (msgpackCodec) Decode(r io.Reader) (*ports.Snapshot, error) {
	var snap ports.Snapshot
	dec := msgpack.NewDecoder(r)
	dec.DisallowUnknownFields(true)
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	if _, err := dec.PeekCode(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after snapshot")
	}
	return &snap, nil
}
