package resultcache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lens/backend/pkg/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCache(store Store) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	return New(store, logger.Nop()).WithClock(clock.Now), clock
}

func TestCanonicalize(t *testing.T) {
	a := map[string]interface{}{
		"portfolio":  []interface{}{map[string]interface{}{"item_key": "A", "weight": 0.5}},
		"start":      "2020-01-01",
		"request_id": "abc",
	}
	b := map[string]interface{}{
		"start":        "2020-01-01",
		"requested_at": "2024-06-01T00:00:00Z",
		"portfolio":    []interface{}{map[string]interface{}{"weight": 0.5, "item_key": "A", "trace_id": "t-1"}},
	}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)

	assert.Equal(t, ca, cb)
	assert.Equal(t, `{"portfolio":[{"item_key":"A","weight":0.5}],"start":"2020-01-01"}`, ca)
	assert.Equal(t, RequestHash("evaluation", ca), RequestHash("evaluation", cb))
	assert.NotEqual(t, RequestHash("evaluation", ca), RequestHash("other", ca))
	assert.Len(t, RequestHash("evaluation", ca), 64)
}

func TestCanonicalize_Struct(t *testing.T) {
	type params struct {
		UserID string  `json:"user_id"`
		Zeta   float64 `json:"zeta"`
		Alpha  string  `json:"alpha"`
	}

	c, err := Canonicalize(params{UserID: "u1", Zeta: 1e-7, Alpha: "<x>"})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"<x>","zeta":1e-7}`, c)
}

func TestResultHash_KeyOrder(t *testing.T) {
	h1, err := ResultHash(map[string]interface{}{"a": 1, "b": []int{1, 2}})
	require.NoError(t, err)
	h2, err := ResultHash([]byte(`{"b":[1,2],"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestGetOrCompute_HitAfterMiss(t *testing.T) {
	cache, _ := newTestCache(NewMemoryStore())
	ctx := context.Background()
	params := map[string]interface{}{"start": "2020-01-01", "request_id": "r1"}

	calls := 0
	compute := func(context.Context) (interface{}, error) {
		calls++
		return map[string]interface{}{"nav": []float64{1, 1.1}}, nil
	}

	first, err := cache.GetOrCompute(ctx, "evaluation", params, time.Hour, compute)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	params["request_id"] = "r2"
	second, err := cache.GetOrCompute(ctx, "evaluation", params, time.Hour, compute)
	require.NoError(t, err)

	assert.True(t, second.CacheHit)
	assert.Equal(t, first.RequestHash, second.RequestHash)
	assert.Equal(t, first.ResultHash, second.ResultHash)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
	assert.Equal(t, int64(1), second.HitCount)
	assert.Equal(t, 1, calls)

	entry, err := cache.Store().Get(ctx, first.RequestHash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.HitCount)
	require.NotNil(t, entry.LastAccessedAt)
}

func TestGetOrCompute_Expiry(t *testing.T) {
	store := NewMemoryStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (interface{}, error) {
		calls++
		return map[string]int{"calls": calls}, nil
	}

	_, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Minute, compute)
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	lookup, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, lookup.CacheHit)
	assert.JSONEq(t, `{"calls":2}`, string(lookup.Payload))
	assert.Equal(t, 2, calls)

	entry, err := store.Get(ctx, lookup.RequestHash)
	require.NoError(t, err)
	require.NotNil(t, entry.ExpiresAt)
	assert.Equal(t, clock.now.Add(time.Minute), *entry.ExpiresAt)
}

func TestGetOrCompute_NoTTL(t *testing.T) {
	store := NewMemoryStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()
	compute := func(context.Context) (interface{}, error) { return "ok", nil }

	first, err := cache.GetOrCompute(ctx, "evaluation", "p", 0, compute)
	require.NoError(t, err)

	clock.now = clock.now.AddDate(10, 0, 0)
	second, err := cache.GetOrCompute(ctx, "evaluation", "p", 0, compute)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)

	entry, err := store.Get(ctx, first.RequestHash)
	require.NoError(t, err)
	assert.Nil(t, entry.ExpiresAt)
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	store := NewMemoryStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Hour, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Entries)
}

// missingStore never finds anything and fails on demand
type missingStore struct {
	*MemoryStore
	insertErr error
}

func (s *missingStore) Get(context.Context, string) (*Entry, error) {
	return nil, ErrCacheMiss
}

func (s *missingStore) Insert(ctx context.Context, e *Entry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.MemoryStore.Insert(ctx, e)
}

// lateStore misses on the first Get, as if another writer raced ahead
type lateStore struct {
	*MemoryStore
	gets int
}

func (s *lateStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.gets++
	if s.gets == 1 {
		return nil, ErrCacheMiss
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestGetOrCompute_StoreFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	compute := func(context.Context) (interface{}, error) { return []int{1, 2, 3}, nil }

	t.Run("duplicate race", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithWriter(testLogConfig(), &buf)
		cache := New(&missingStore{MemoryStore: NewMemoryStore()}, log)

		first, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Hour, compute)
		require.NoError(t, err)
		second, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Hour, compute)
		require.NoError(t, err)

		assert.False(t, second.CacheHit)
		assert.Equal(t, first.ResultHash, second.ResultHash)
		assert.Contains(t, buf.String(), "Cache integrity warning")
		assert.Contains(t, buf.String(), ErrDuplicateEntry.Error())
	})

	t.Run("duplicate returns stored row", func(t *testing.T) {
		store := &lateStore{MemoryStore: NewMemoryStore()}
		cache := New(store, nil)
		canonical, err := Canonicalize("p")
		require.NoError(t, err)
		require.NoError(t, store.MemoryStore.Insert(ctx, &Entry{
			RequestHash:   RequestHash("evaluation", canonical),
			RequestType:   "evaluation",
			ResultPayload: []byte(`[9]`),
			ResultHash:    "stored",
			CreatedAt:     time.Now(),
		}))

		lookup, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Hour, compute)
		require.NoError(t, err)
		assert.False(t, lookup.CacheHit)
		assert.Equal(t, "stored", lookup.ResultHash)
		assert.JSONEq(t, `[9]`, string(lookup.Payload))
	})

	t.Run("insert failure", func(t *testing.T) {
		cache := New(&missingStore{MemoryStore: NewMemoryStore(), insertErr: errors.New("disk full")}, nil)

		lookup, err := cache.GetOrCompute(ctx, "evaluation", "p", time.Hour, compute)
		require.NoError(t, err)
		assert.JSONEq(t, `[1,2,3]`, string(lookup.Payload))
	})
}

func TestIntegrityWarning(t *testing.T) {
	w := &IntegrityWarning{Op: "insert", RequestHash: "abc", Err: ErrDuplicateEntry}
	assert.ErrorIs(t, w, ErrDuplicateEntry)
	assert.Contains(t, w.Error(), "insert abc")
}

func TestSweep(t *testing.T) {
	store := NewMemoryStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()
	compute := func(context.Context) (interface{}, error) { return 1, nil }

	_, err := cache.GetOrCompute(ctx, "evaluation", "short", time.Minute, compute)
	require.NoError(t, err)
	_, err = cache.GetOrCompute(ctx, "evaluation", "long", 24*time.Hour, compute)
	require.NoError(t, err)
	_, err = cache.GetOrCompute(ctx, "evaluation", "forever", 0, compute)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Entries)
	assert.Equal(t, int64(1), stats.Expired)

	removed, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err = cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entries)
	assert.Equal(t, int64(0), stats.Expired)
}

// testStoreContract exercises a Store with wall-clock timestamps
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	hash := RequestHash("contract", now.String())

	_, err := store.Get(ctx, hash)
	require.ErrorIs(t, err, ErrCacheMiss)

	entry := &Entry{
		RequestHash:     hash,
		RequestType:     "contract",
		CanonicalParams: `{"a":1}`,
		ResultPayload:   []byte(`{"ok":true}`),
		ResultHash:      hashBytes([]byte(`{"ok":true}`)),
		CreatedAt:       now,
		ExpiresAt:       &future,
	}
	require.NoError(t, store.Insert(ctx, entry))
	assert.ErrorIs(t, store.Insert(ctx, entry), ErrDuplicateEntry)

	got, err := store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "contract", got.RequestType)
	assert.JSONEq(t, `{"ok":true}`, string(got.ResultPayload))
	assert.Equal(t, entry.ResultHash, got.ResultHash)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.Equal(t, int64(0), got.HitCount)

	require.NoError(t, store.Touch(ctx, hash, now))
	require.NoError(t, store.Touch(ctx, hash, now))
	got, err = store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.HitCount)
	require.NotNil(t, got.LastAccessedAt)

	assert.ErrorIs(t, store.Touch(ctx, "missing", now), ErrCacheMiss)

	require.NoError(t, store.Delete(ctx, hash))
	_, err = store.Get(ctx, hash)
	assert.ErrorIs(t, err, ErrCacheMiss)

	stale := *entry
	stale.RequestHash = hash + "-stale"
	stale.ExpiresAt = &past
	if err := store.Insert(ctx, &stale); err == nil {
		_, err := store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		_, err = store.Get(ctx, stale.RequestHash)
		assert.ErrorIs(t, err, ErrCacheMiss)
	}

	_, err = store.Stats(ctx, now)
	require.NoError(t, err)
}

func TestMemoryStore_Contract(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := OpenSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer store.Close()

	testStoreContract(t, store)

	stats, err := store.Stats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats.Backend)
}

func TestPostgresStore_Contract(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool := openTestPool(t)
	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(context.Background()))

	testStoreContract(t, store)
}

func TestRedisStore_Contract(t *testing.T) {
	if os.Getenv("REDIS_ADDR") == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	rdb := openTestRedis(t)
	testStoreContract(t, NewRedisStore(rdb, "lens:test:"+time.Now().Format("150405.000000")))
}

func TestRedisStore_ReinsertResetsCounters(t *testing.T) {
	if os.Getenv("REDIS_ADDR") == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	ctx := context.Background()
	rdb := openTestRedis(t)
	store := NewRedisStore(rdb, "lens:test:"+time.Now().Format("150405.000000"))

	entry := &Entry{
		RequestHash:   "h1",
		RequestType:   "evaluation",
		ResultPayload: []byte(`{"a":1}`),
		ResultHash:    "r1",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Insert(ctx, entry))
	require.NoError(t, store.Touch(ctx, "h1", time.Now()))
	require.NoError(t, store.Touch(ctx, "h1", time.Now()))

	// a duplicate insert keeps the counters
	assert.ErrorIs(t, store.Insert(ctx, entry), ErrDuplicateEntry)
	got, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.HitCount)

	// the entry key expires in Redis while its counters remain
	require.NoError(t, rdb.Del(ctx, store.entryKey("h1")).Err())
	require.NoError(t, store.Insert(ctx, entry))

	got, err = store.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.HitCount)
	assert.Nil(t, got.LastAccessedAt)
}
