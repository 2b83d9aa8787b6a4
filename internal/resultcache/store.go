package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by Store.Get when no entry exists
	ErrCacheMiss = errors.New("cache miss")
	// ErrDuplicateEntry is returned by Store.Insert when the key already exists
	ErrDuplicateEntry = errors.New("duplicate cache entry")
)

// Entry is one persisted computation result
type Entry struct {
	RequestHash     string          `json:"request_hash"`
	RequestType     string          `json:"request_type"`
	CanonicalParams string          `json:"canonical_params"`
	ResultPayload   json.RawMessage `json:"result_payload"`
	ResultHash      string          `json:"result_hash"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"` // nil = no expiry
	HitCount        int64           `json:"hit_count"`
	LastAccessedAt  *time.Time      `json:"last_accessed_at,omitempty"`
}

// Expired reports whether the entry is past its expiry at now
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// Stats summarizes a store
type Stats struct {
	Backend   string `json:"backend"`
	Entries   int64  `json:"entries"`
	Expired   int64  `json:"expired"`
	TotalHits int64  `json:"total_hits"`
}

// Store persists cache entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns ErrCacheMiss when requestHash is unknown
	Get(ctx context.Context, requestHash string) (*Entry, error)
	// Insert returns ErrDuplicateEntry when requestHash already exists
	Insert(ctx context.Context, entry *Entry) error
	// Touch increments the hit count and records the access time
	Touch(ctx context.Context, requestHash string, at time.Time) error
	Delete(ctx context.Context, requestHash string) error
	// DeleteExpired removes entries expiring before now and returns the count
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}
