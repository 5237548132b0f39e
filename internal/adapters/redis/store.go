// Package redis implements ports.TokenStore on a shared Redis server, so
// several daemons can train and query one model. Keys are namespaced as
//
//	{prefix}:{ns}:class:{name}   hash  token -> count
//	{prefix}:{ns}:totals         hash  name  -> class total
//	{prefix}:{ns}:corpus         hash  token -> count over all classes
//	{prefix}:{ns}:corpus_total   string
//
// Every increment runs in one MULTI/EXEC, so the corpus always mirrors the
// class hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/corey/bayes/internal/domain/estimator"
	"github.com/corey/bayes/internal/ports"
)

// Defaults applied by New for empty config fields.
const (
	DefaultPrefix    = "bayes"
	DefaultNamespace = "default"
)

// maxTxRetries bounds optimistic-lock retries for whole-namespace reads and
// writes racing concurrent training.
const maxTxRetries = 16

// Config configures the Redis store.
type Config struct {
	Prefix    string // key prefix, default "bayes"
	Namespace string // model namespace, default "default"
}

// Store implements ports.TokenStore and ports.Snapshotter backed by Redis.
// Names are returned sorted.
type Store struct {
	client redis.UniversalClient
	prefix string
	ctx    context.Context
}

// New creates a store on an existing client. The store owns the client and
// closes it in Close.
func New(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	return &Store{
		client: client,
		prefix: cfg.Prefix + ":" + cfg.Namespace,
		ctx:    context.Background(),
	}
}

// Dial connects to addr/db and pings the server before returning.
func Dial(ctx context.Context, addr string, db int, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, cfg), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) classKey(name string) string { return s.prefix + ":class:" + name }
func (s *Store) totalsKey() string           { return s.prefix + ":totals" }
func (s *Store) corpusKey() string           { return s.prefix + ":corpus" }
func (s *Store) corpusTotalKey() string      { return s.prefix + ":corpus_total" }

// AddTokenCount adds count occurrences of token to class name.
func (s *Store) AddTokenCount(name, token string, count uint32) error {
	if err := ports.CheckAdd(name, token, count); err != nil {
		return err
	}
	n := int64(count)
	_, err := s.client.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(s.ctx, s.classKey(name), token, n)
		pipe.HIncrBy(s.ctx, s.totalsKey(), name, n)
		pipe.HIncrBy(s.ctx, s.corpusKey(), token, n)
		pipe.IncrBy(s.ctx, s.corpusTotalKey(), n)
		return nil
	})
	return err
}

// AddToken is AddTokenCount(name, token, 1).
func (s *Store) AddToken(name, token string) error {
	return s.AddTokenCount(name, token, 1)
}

// Names returns every trained class, sorted.
func (s *Store) Names() ([]string, error) {
	names, err := s.client.HKeys(s.ctx, s.totalsKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// TokenCount reads a class token count, a class total or a corpus count.
func (s *Store) TokenCount(name, token string) (uint64, error) {
	if err := ports.CheckCount(name, token); err != nil {
		return 0, err
	}
	var cmd *redis.StringCmd
	switch {
	case name == "":
		cmd = s.client.HGet(s.ctx, s.corpusKey(), token)
	case token == "":
		cmd = s.client.HGet(s.ctx, s.totalsKey(), name)
	default:
		cmd = s.client.HGet(s.ctx, s.classKey(name), token)
	}
	return countOf(cmd)
}

// TokenProbability returns the probability that token belongs to class name.
// All four counts are read in one MULTI/EXEC.
func (s *Store) TokenProbability(name, token string) (float64, error) {
	if err := ports.CheckProbability(name, token); err != nil {
		return 0, err
	}
	var pool, corpus, this, total *redis.StringCmd
	_, err := s.client.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		pool = pipe.HGet(s.ctx, s.totalsKey(), name)
		corpus = pipe.Get(s.ctx, s.corpusTotalKey())
		this = pipe.HGet(s.ctx, s.classKey(name), token)
		total = pipe.HGet(s.ctx, s.corpusKey(), token)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	if errors.Is(pool.Err(), redis.Nil) {
		return 0.0, nil // untrained class
	}

	var c estimator.Counts
	for _, f := range []struct {
		dst *uint64
		cmd *redis.StringCmd
	}{{&c.Pool, pool}, {&c.Corpus, corpus}, {&c.This, this}, {&c.Total, total}} {
		if *f.dst, err = countOf(f.cmd); err != nil {
			return 0, err
		}
	}
	return estimator.Probability(c), nil
}

// Snapshot reads the whole namespace. The read is retried if training
// changes the class set while it runs.
func (s *Store) Snapshot() (*ports.Snapshot, error) {
	var snap *ports.Snapshot
	err := s.watch(func(tx *redis.Tx) error {
		totals, err := tx.HGetAll(s.ctx, s.totalsKey()).Result()
		if err != nil {
			return err
		}
		names := sortedNames(totals)
		classes := make([]*redis.MapStringStringCmd, len(names))
		var corpus *redis.MapStringStringCmd
		var corpusTotal *redis.StringCmd
		_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
			for i, name := range names {
				classes[i] = pipe.HGetAll(s.ctx, s.classKey(name))
			}
			corpus = pipe.HGetAll(s.ctx, s.corpusKey())
			corpusTotal = pipe.Get(s.ctx, s.corpusTotalKey())
			return nil
		})
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		out := ports.NewSnapshot()
		for i, name := range names {
			ts, err := tableOf(classes[i])
			if err != nil {
				return fmt.Errorf("class %q: %w", name, err)
			}
			if ts.Count, err = parseCount(totals[name]); err != nil {
				return fmt.Errorf("class %q total: %w", name, err)
			}
			out.Names[name] = ts
		}
		if out.Corpus, err = tableOf(corpus); err != nil {
			return fmt.Errorf("corpus: %w", err)
		}
		if out.Corpus.Count, err = countOf(corpusTotal); err != nil {
			return fmt.Errorf("corpus total: %w", err)
		}
		snap = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces the namespace with snap in one MULTI/EXEC. An invalid
// snapshot is rejected before any key is touched.
func (s *Store) Restore(snap *ports.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	return s.replace(func(pipe redis.Pipeliner) {
		for name, ts := range snap.Names {
			if len(ts.Tokens) > 0 {
				pipe.HSet(s.ctx, s.classKey(name), hashValues(ts.Tokens))
			}
			pipe.HSet(s.ctx, s.totalsKey(), name, ts.Count)
		}
		if len(snap.Corpus.Tokens) > 0 {
			pipe.HSet(s.ctx, s.corpusKey(), hashValues(snap.Corpus.Tokens))
		}
		pipe.Set(s.ctx, s.corpusTotalKey(), snap.Corpus.Count, 0)
	})
}

// DeleteNamespace removes every class and the corpus. Idempotent.
func (s *Store) DeleteNamespace() error {
	return s.replace(func(redis.Pipeliner) {})
}

// replace deletes every key of the namespace and queues write in the same
// transaction.
func (s *Store) replace(write func(redis.Pipeliner)) error {
	return s.watch(func(tx *redis.Tx) error {
		names, err := tx.HKeys(s.ctx, s.totalsKey()).Result()
		if err != nil {
			return err
		}
		keys := []string{s.totalsKey(), s.corpusKey(), s.corpusTotalKey()}
		for _, name := range names {
			keys = append(keys, s.classKey(name))
		}
		_, err = tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(s.ctx, keys...)
			write(pipe)
			return nil
		})
		return err
	})
}

// watch runs fn under WATCH on the totals hash, which every increment
// touches, retrying when a concurrent write aborts the transaction.
func (s *Store) watch(fn func(*redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(s.ctx, fn, s.totalsKey())
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redis: namespace %s kept changing, gave up after %d attempts", s.prefix, maxTxRetries)
}

// countOf reads a count reply, treating a missing key or field as 0.
func countOf(cmd *redis.StringCmd) (uint64, error) {
	n, err := cmd.Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func parseCount(v string) (uint64, error) {
	var n uint64
	if _, err := fmt.Sscan(v, &n); err != nil {
		return 0, fmt.Errorf("corrupt count %q", v)
	}
	return n, nil
}

func tableOf(cmd *redis.MapStringStringCmd) (*ports.TableSnapshot, error) {
	fields, err := cmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	ts := &ports.TableSnapshot{Tokens: make(map[string]uint64, len(fields))}
	for tok, v := range fields {
		n, err := parseCount(v)
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", tok, err)
		}
		ts.Tokens[tok] = n
	}
	return ts, nil
}

func hashValues(tokens map[string]uint64) map[string]interface{} {
	out := make(map[string]interface{}, len(tokens))
	for tok, n := range tokens {
		out[tok] = n
	}
	return out
}

func sortedNames(totals map[string]string) []string {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile-time interface checks.
var (
	_ ports.TokenStore  = (*Store)(nil)
	_ ports.Snapshotter = (*Store)(nil)
)
