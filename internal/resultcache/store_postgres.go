package resultcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE SCHEMA IF NOT EXISTS lens;

CREATE TABLE IF NOT EXISTS lens.result_cache (
	request_hash     TEXT PRIMARY KEY,
	request_type     TEXT        NOT NULL,
	canonical_params TEXT        NOT NULL,
	result_payload   JSONB       NOT NULL,
	result_hash      TEXT        NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ,
	hit_count        BIGINT      NOT NULL DEFAULT 0,
	last_accessed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at
	ON lens.result_cache (expires_at) WHERE expires_at IS NOT NULL;
`

// PostgresStore persists entries in lens.result_cache
// ⭐ SSOT: 결과 캐시 테이블 접근은 여기서만
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the cache table when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create result cache schema: %w", err)
	}
	return nil
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, requestHash string) (*Entry, error) {
	query := `
		SELECT request_hash, request_type, canonical_params, result_payload, result_hash,
		       created_at, expires_at, hit_count, last_accessed_at
		FROM lens.result_cache
		WHERE request_hash = $1
	`

	var (
		e       Entry
		payload []byte
	)
	err := s.pool.QueryRow(ctx, query, requestHash).Scan(
		&e.RequestHash, &e.RequestType, &e.CanonicalParams, &payload, &e.ResultHash,
		&e.CreatedAt, &e.ExpiresAt, &e.HitCount, &e.LastAccessedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	e.ResultPayload = payload
	return &e, nil
}

// Insert implements Store
func (s *PostgresStore) Insert(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO lens.result_cache (
			request_hash, request_type, canonical_params, result_payload, result_hash,
			created_at, expires_at, hit_count, last_accessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (request_hash) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		entry.RequestHash, entry.RequestType, entry.CanonicalParams, string(entry.ResultPayload), entry.ResultHash,
		entry.CreatedAt, entry.ExpiresAt, entry.HitCount, entry.LastAccessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEntry
	}
	return nil
}

// Touch implements Store
func (s *PostgresStore) Touch(ctx context.Context, requestHash string, at time.Time) error {
	query := `
		UPDATE lens.result_cache
		SET hit_count = hit_count + 1, last_accessed_at = $2
		WHERE request_hash = $1
	`

	tag, err := s.pool.Exec(ctx, query, requestHash, at)
	if err != nil {
		return fmt.Errorf("failed to touch cache entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCacheMiss
	}
	return nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context, requestHash string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM lens.result_cache WHERE request_hash = $1`, requestHash); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpired implements Store
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lens.result_cache WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats implements Store
func (s *PostgresStore) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at < $1),
			COALESCE(SUM(hit_count), 0)
		FROM lens.result_cache
	`

	stats := &Stats{Backend: "postgres"}
	if err := s.pool.QueryRow(ctx, query, now).Scan(&stats.Entries, &stats.Expired, &stats.TotalHits); err != nil {
		return nil, fmt.Errorf("failed to get cache stats: %w", err)
	}
	return stats, nil
}
