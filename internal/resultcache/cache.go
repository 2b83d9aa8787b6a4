package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/lens/backend/pkg/logger"
)

// ComputeFunc produces a fresh result on a cache miss
type ComputeFunc func(ctx context.Context) (interface{}, error)

// Lookup is the outcome of GetOrCompute
type Lookup struct {
	RequestHash string          `json:"request_hash"`
	ResultHash  string          `json:"result_hash"`
	Payload     json.RawMessage `json:"payload"`
	CacheHit    bool            `json:"cache_hit"`
	HitCount    int64           `json:"hit_count"`
}

// IntegrityWarning describes a non-fatal store failure.
// It is logged and never returned to the caller.
type IntegrityWarning struct {
	Op          string
	RequestHash string
	Err         error
}

func (w *IntegrityWarning) Error() string {
	return fmt.Sprintf("cache integrity warning: %s %s: %v", w.Op, w.RequestHash, w.Err)
}

func (w *IntegrityWarning) Unwrap() error {
	return w.Err
}

// Cache memoizes computations by request fingerprint
// ⭐ SSOT: 결과 캐시 조회/저장은 여기서만
type Cache struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

// New creates a cache over store
func New(store Store, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Store returns the underlying store
func (c *Cache) Store() Store {
	return c.store
}

// GetOrCompute returns the stored result for (requestType, params) or runs
// compute and stores its result with the given ttl (ttl ≤ 0: no expiry).
// Compute errors are returned and never cached.
func (c *Cache) GetOrCompute(ctx context.Context, requestType string, params interface{}, ttl time.Duration, compute ComputeFunc) (*Lookup, error) {
	canonical, err := Canonicalize(params)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize params: %w", err)
	}
	requestHash := RequestHash(requestType, canonical)
	now := c.now().UTC()

	entry, err := c.store.Get(ctx, requestHash)
	switch {
	case err == nil && entry.Expired(now):
		if err := c.store.Delete(ctx, requestHash); err != nil {
			c.warn(&IntegrityWarning{Op: "delete_expired", RequestHash: requestHash, Err: err})
		}
	case err == nil:
		hits := entry.HitCount + 1
		if err := c.store.Touch(ctx, requestHash, now); err != nil {
			c.warn(&IntegrityWarning{Op: "touch", RequestHash: requestHash, Err: err})
			hits = entry.HitCount
		}
		c.logger.WithFields(map[string]interface{}{
			"request_type": requestType,
			"request_hash": requestHash,
			"hit_count":    hits,
		}).Debug("Cache hit")
		return &Lookup{
			RequestHash: requestHash,
			ResultHash:  entry.ResultHash,
			Payload:     entry.ResultPayload,
			CacheHit:    true,
			HitCount:    hits,
		}, nil
	case errors.Is(err, ErrCacheMiss):
	default:
		c.warn(&IntegrityWarning{Op: "get", RequestHash: requestHash, Err: err})
	}

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := CanonicalJSON(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}
	resultHash := hashBytes(payload)

	fresh := &Entry{
		RequestHash:     requestHash,
		RequestType:     requestType,
		CanonicalParams: canonical,
		ResultPayload:   payload,
		ResultHash:      resultHash,
		CreatedAt:       now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		fresh.ExpiresAt = &expires
	}

	if err := c.store.Insert(ctx, fresh); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			// 동시 miss: 먼저 저장된 행이 정답
			if stored, getErr := c.store.Get(ctx, requestHash); getErr == nil {
				return &Lookup{
					RequestHash: requestHash,
					ResultHash:  stored.ResultHash,
					Payload:     stored.ResultPayload,
					CacheHit:    false,
				}, nil
			}
		}
		c.warn(&IntegrityWarning{Op: "insert", RequestHash: requestHash, Err: err})
	}

	c.logger.WithFields(map[string]interface{}{
		"request_type": requestType,
		"request_hash": requestHash,
		"result_hash":  resultHash,
	}).Debug("Cache miss, result stored")

	return &Lookup{
		RequestHash: requestHash,
		ResultHash:  resultHash,
		Payload:     payload,
		CacheHit:    false,
	}, nil
}

// Sweep deletes every expired entry
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	removed, err := c.store.DeleteExpired(ctx, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	if removed > 0 {
		c.logger.WithField("removed", removed).Info("Expired cache entries swept")
	}
	return removed, nil
}

// Stats returns store statistics
func (c *Cache) Stats(ctx context.Context) (*Stats, error) {
	return c.store.Stats(ctx, c.now().UTC())
}

func (c *Cache) warn(w *IntegrityWarning) {
	c.logger.WithError(w.Err).WithFields(map[string]interface{}{
		"op":           w.Op,
		"request_hash": w.RequestHash,
	}).Warn("Cache integrity warning")
}
