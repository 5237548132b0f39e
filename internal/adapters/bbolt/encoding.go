// Count encoding for bbolt values.
//
// Every stored count (per-token entries and table totals) is a fixed-width
// big-endian uint64. Values of any other length are treated as corruption
// rather than silently read as zero.
package bbolt

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	bolt "go.etcd.io/bbolt"
)

// countSize is the byte size of one encoded count.
const countSize = 8

func encodeCount(n uint64) []byte {
	buf := make([]byte, countSize)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// decodeCount decodes a stored count. A nil value (missing key) reads as 0.
func decodeCount(v []byte) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if len(v) != countSize {
		return 0, fmt.Errorf("corrupt count: %d bytes, want %d", len(v), countSize)
	}
	return binary.BigEndian.Uint64(v), nil
}

// readCount reads key from b, treating a missing bucket as 0.
func readCount(b *bolt.Bucket, key []byte) (uint64, error) {
	if b == nil {
		return 0, nil
	}
	return decodeCount(b.Get(key))
}

// addCount adds n to the count stored at key.
func addCount(b *bolt.Bucket, key []byte, n uint64) error {
	cur, err := decodeCount(b.Get(key))
	if err != nil {
		return fmt.Errorf("%q: %w", key, err)
	}
	sum, carry := bits.Add64(cur, n, 0)
	if carry != 0 {
		return fmt.Errorf("%q: count overflow", key)
	}
	return b.Put(key, encodeCount(sum))
}
