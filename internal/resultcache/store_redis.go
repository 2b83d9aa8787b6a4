package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "lens:result"

// insertOnce writes the entry only if absent and then resets its counters,
// so a recomputed entry never inherits hits of an expired one.
// KEYS: entry, hits hash, accessed hash. ARGV: payload, ttl ms (0 = none), request hash.
var insertOnce = redis.NewScript(`
	local ok
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		ok = redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ttl)
	else
		ok = redis.call('SET', KEYS[1], ARGV[1], 'NX')
	end
	if not ok then
		return 0
	end
	redis.call('HDEL', KEYS[2], ARGV[3])
	redis.call('HDEL', KEYS[3], ARGV[3])
	return 1
`)

// RedisStore keeps entries as JSON strings with native key expiry.
// Hit counters and access times live in companion hashes.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a store on rdb. An empty prefix uses "lens:result".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) entryKey(requestHash string) string {
	return fmt.Sprintf("%s:entry:%s", s.prefix, requestHash)
}

func (s *RedisStore) hitsKey() string     { return s.prefix + ":hits" }
func (s *RedisStore) accessedKey() string { return s.prefix + ":accessed" }

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, requestHash string) (*Entry, error) {
	data, err := s.rdb.Get(ctx, s.entryKey(requestHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("cache entry unmarshal failed: %w", err)
	}

	hits, err := s.rdb.HGet(ctx, s.hitsKey(), requestHash).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get hit count: %w", err)
	}
	e.HitCount = hits

	accessed, err := s.rdb.HGet(ctx, s.accessedKey(), requestHash).Int64()
	if err == nil {
		t := time.Unix(0, accessed).UTC()
		e.LastAccessedAt = &t
	}
	return &e, nil
}

// Insert implements Store. Entries already past their expiry are not written.
func (s *RedisStore) Insert(ctx context.Context, entry *Entry) error {
	var ttl time.Duration
	if entry.ExpiresAt != nil {
		ttl = time.Until(*entry.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	stored := *entry
	stored.HitCount = 0
	stored.LastAccessedAt = nil
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("cache entry marshal failed: %w", err)
	}

	ttlMillis := ttl.Milliseconds()
	if ttl > 0 && ttlMillis == 0 {
		ttlMillis = 1
	}

	keys := []string{s.entryKey(entry.RequestHash), s.hitsKey(), s.accessedKey()}
	inserted, err := insertOnce.Run(ctx, s.rdb, keys, data, ttlMillis, entry.RequestHash).Int()
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	if inserted == 0 {
		return ErrDuplicateEntry
	}
	return nil
}

// Touch implements Store
func (s *RedisStore) Touch(ctx context.Context, requestHash string, at time.Time) error {
	exists, err := s.rdb.Exists(ctx, s.entryKey(requestHash)).Result()
	if err != nil {
		return fmt.Errorf("failed to touch cache entry: %w", err)
	}
	if exists == 0 {
		return ErrCacheMiss
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.hitsKey(), requestHash, 1)
		pipe.HSet(ctx, s.accessedKey(), requestHash, at.UnixNano())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to touch cache entry: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, requestHash string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(requestHash))
		pipe.HDel(ctx, s.hitsKey(), requestHash)
		pipe.HDel(ctx, s.accessedKey(), requestHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpired implements Store. Redis expires entry keys itself, so this
// only prunes counters whose entry is gone and returns how many it pruned.
func (s *RedisStore) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	hashes, err := s.rdb.HKeys(ctx, s.hitsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list hit counters: %w", err)
	}

	var pruned int64
	for _, h := range hashes {
		exists, err := s.rdb.Exists(ctx, s.entryKey(h)).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to check cache entry: %w", err)
		}
		if exists > 0 {
			continue
		}
		_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, s.hitsKey(), h)
			pipe.HDel(ctx, s.accessedKey(), h)
			return nil
		})
		if err != nil {
			return pruned, fmt.Errorf("failed to prune hit counter: %w", err)
		}
		pruned++
	}
	return pruned, nil
}

// Stats implements Store
func (s *RedisStore) Stats(ctx context.Context, _ time.Time) (*Stats, error) {
	stats := &Stats{Backend: "redis"}

	iter := s.rdb.Scan(ctx, 0, s.entryKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		stats.Entries++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cache entries: %w", err)
	}

	values, err := s.rdb.HVals(ctx, s.hitsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hit counters: %w", err)
	}
	for _, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		stats.TotalHits += n
	}
	return stats, nil
}
