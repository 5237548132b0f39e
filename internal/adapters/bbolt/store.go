// Package bbolt implements ports.TokenStore using bbolt (embedded B+ tree).
// Each namespace gets its own top-level bucket. Within that bucket:
//
//	classes/<name>/<token> -> count   one sub-bucket per class
//	totals/<name>          -> count   running class totals
//	corpus/<token>         -> count   aggregate over all classes
//	meta/corpus_total      -> count
//
// Every increment touches all four in a single transaction, so the corpus
// can never drift from the class tables even across a crash.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/bayes/internal/domain/estimator"
	"github.com/corey/bayes/internal/ports"
)

// DefaultNamespace is used when NewStore is given an empty namespace.
const DefaultNamespace = "default"

// Bucket keys
var (
	bucketClasses  = []byte("classes")
	bucketTotals   = []byte("totals")
	bucketCorpus   = []byte("corpus")
	bucketMeta     = []byte("meta")
	keyCorpusTotal = []byte("corpus_total")
)

// Store implements ports.TokenStore and ports.Snapshotter backed by bbolt.
// Names are returned in sorted order (bbolt key order).
type Store struct {
	db *bolt.DB
	ns []byte
}

// NewStore opens (or creates) a bbolt database at the given path, scoped to
// one namespace.
func NewStore(path, namespace string) (*Store, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db, ns: []byte(namespace)}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns the bucket this store reads and writes.
func (s *Store) Namespace() string {
	return string(s.ns)
}

// AddTokenCount adds count occurrences of token to class name.
func (s *Store) AddTokenCount(name, token string, count uint32) error {
	if err := ports.CheckAdd(name, token, count); err != nil {
		return err
	}
	n := uint64(count)
	tok := []byte(token)

	return s.db.Update(func(tx *bolt.Tx) error {
		ns, err := tx.CreateBucketIfNotExists(s.ns)
		if err != nil {
			return err
		}
		b, err := createBuckets(ns)
		if err != nil {
			return err
		}
		cls, err := b.classes.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if err := addCount(cls, tok, n); err != nil {
			return err
		}
		if err := addCount(b.totals, []byte(name), n); err != nil {
			return err
		}
		if err := addCount(b.corpus, tok, n); err != nil {
			return err
		}
		return addCount(b.meta, keyCorpusTotal, n)
	})
}

// AddToken is AddTokenCount(name, token, 1).
func (s *Store) AddToken(name, token string) error {
	return s.AddTokenCount(name, token, 1)
}

// Names returns every trained class, sorted.
func (s *Store) Names() ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.buckets(tx)
		if b.totals == nil {
			return nil
		}
		return b.totals.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// TokenCount reads a class token count, a class total or a corpus count.
func (s *Store) TokenCount(name, token string) (uint64, error) {
	if err := ports.CheckCount(name, token); err != nil {
		return 0, err
	}
	var n uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.buckets(tx)
		var err error
		switch {
		case name == "":
			n, err = readCount(b.corpus, []byte(token))
		case token == "":
			n, err = readCount(b.totals, []byte(name))
		default:
			n, err = readCount(b.class(name), []byte(token))
		}
		return err
	})
	return n, err
}

// TokenProbability returns the probability that token belongs to class name.
// All four counts are read in one transaction.
func (s *Store) TokenProbability(name, token string) (float64, error) {
	if err := ports.CheckProbability(name, token); err != nil {
		return 0, err
	}
	var (
		c       estimator.Counts
		trained bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.buckets(tx)
		if b.totals == nil || b.totals.Get([]byte(name)) == nil {
			return nil
		}
		trained = true
		var err error
		if c.Pool, err = readCount(b.totals, []byte(name)); err != nil {
			return err
		}
		if c.Corpus, err = readCount(b.meta, keyCorpusTotal); err != nil {
			return err
		}
		if c.This, err = readCount(b.class(name), []byte(token)); err != nil {
			return err
		}
		c.Total, err = readCount(b.corpus, []byte(token))
		return err
	})
	if err != nil || !trained {
		return 0.0, err
	}
	return estimator.Probability(c), nil
}

// Snapshot reads the whole namespace into a persistence document.
func (s *Store) Snapshot() (*ports.Snapshot, error) {
	snap := ports.NewSnapshot()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.buckets(tx)
		if b.totals == nil {
			return nil
		}
		err := b.totals.ForEach(func(k, v []byte) error {
			total, err := decodeCount(v)
			if err != nil {
				return fmt.Errorf("total %q: %w", k, err)
			}
			ts, err := readTable(b.classes.Bucket(k))
			if err != nil {
				return fmt.Errorf("class %q: %w", k, err)
			}
			ts.Count = total
			snap.Names[string(k)] = ts
			return nil
		})
		if err != nil {
			return err
		}
		corpus, err := readTable(b.corpus)
		if err != nil {
			return fmt.Errorf("corpus: %w", err)
		}
		if corpus.Count, err = readCount(b.meta, keyCorpusTotal); err != nil {
			return err
		}
		snap.Corpus = corpus
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces the namespace with snap in one transaction. An invalid
// snapshot is rejected before the database is touched.
func (s *Store) Restore(snap *ports.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.ns); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		ns, err := tx.CreateBucket(s.ns)
		if err != nil {
			return err
		}
		b, err := createBuckets(ns)
		if err != nil {
			return err
		}
		for name, ts := range snap.Names {
			cls, err := b.classes.CreateBucket([]byte(name))
			if err != nil {
				return err
			}
			if err := writeTable(cls, ts); err != nil {
				return err
			}
			if err := b.totals.Put([]byte(name), encodeCount(ts.Count)); err != nil {
				return err
			}
		}
		if err := writeTable(b.corpus, snap.Corpus); err != nil {
			return err
		}
		return b.meta.Put(keyCorpusTotal, encodeCount(snap.Corpus.Count))
	})
}

// DeleteNamespace removes every class and the corpus.
// Idempotent: deleting an empty namespace is not an error.
func (s *Store) DeleteNamespace() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(s.ns)
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

// buckets groups the sub-buckets of one namespace. Any field may be nil in a
// read transaction when nothing has been trained yet.
type buckets struct {
	classes, totals, corpus, meta *bolt.Bucket
}

func (b buckets) class(name string) *bolt.Bucket {
	if b.classes == nil {
		return nil
	}
	return b.classes.Bucket([]byte(name))
}

func (s *Store) buckets(tx *bolt.Tx) buckets {
	ns := tx.Bucket(s.ns)
	if ns == nil {
		return buckets{}
	}
	return buckets{
		classes: ns.Bucket(bucketClasses),
		totals:  ns.Bucket(bucketTotals),
		corpus:  ns.Bucket(bucketCorpus),
		meta:    ns.Bucket(bucketMeta),
	}
}

func createBuckets(ns *bolt.Bucket) (buckets, error) {
	var b buckets
	var err error
	if b.classes, err = ns.CreateBucketIfNotExists(bucketClasses); err != nil {
		return b, err
	}
	if b.totals, err = ns.CreateBucketIfNotExists(bucketTotals); err != nil {
		return b, err
	}
	if b.corpus, err = ns.CreateBucketIfNotExists(bucketCorpus); err != nil {
		return b, err
	}
	b.meta, err = ns.CreateBucketIfNotExists(bucketMeta)
	return b, err
}

// readTable copies a token bucket out of the transaction. Count is left for
// the caller, since totals live in their own bucket.
func readTable(b *bolt.Bucket) (*ports.TableSnapshot, error) {
	ts := &ports.TableSnapshot{Tokens: make(map[string]uint64)}
	if b == nil {
		return ts, nil
	}
	err := b.ForEach(func(k, v []byte) error {
		n, err := decodeCount(v)
		if err != nil {
			return fmt.Errorf("token %q: %w", k, err)
		}
		ts.Tokens[string(k)] = n
		return nil
	})
	return ts, err
}

func writeTable(b *bolt.Bucket, ts *ports.TableSnapshot) error {
	for tok, n := range ts.Tokens {
		if err := b.Put([]byte(tok), encodeCount(n)); err != nil {
			return err
		}
	}
	return nil
}
