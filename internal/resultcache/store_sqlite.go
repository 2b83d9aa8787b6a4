package resultcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS result_cache (
	request_hash     TEXT PRIMARY KEY,
	request_type     TEXT    NOT NULL,
	canonical_params TEXT    NOT NULL,
	result_payload   TEXT    NOT NULL,
	result_hash      TEXT    NOT NULL,
	created_at       INTEGER NOT NULL,
	expires_at       INTEGER,
	hit_count        INTEGER NOT NULL DEFAULT 0,
	last_accessed_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache (expires_at);
`

// SQLiteStore persists entries in a local SQLite file.
// Timestamps are stored as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
	}
	// go-sqlite3 serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, requestHash string) (*Entry, error) {
	query := `
		SELECT request_hash, request_type, canonical_params, result_payload, result_hash,
		       created_at, expires_at, hit_count, last_accessed_at
		FROM result_cache
		WHERE request_hash = ?
	`

	var (
		e                  Entry
		payload            string
		createdAt          int64
		expiresAt, touched sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, requestHash).Scan(
		&e.RequestHash, &e.RequestType, &e.CanonicalParams, &payload, &e.ResultHash,
		&createdAt, &expiresAt, &e.HitCount, &touched,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	e.ResultPayload = []byte(payload)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	e.ExpiresAt = fromNullUnix(expiresAt)
	e.LastAccessedAt = fromNullUnix(touched)
	return &e, nil
}

// Insert implements Store
func (s *SQLiteStore) Insert(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO result_cache (
			request_hash, request_type, canonical_params, result_payload, result_hash,
			created_at, expires_at, hit_count, last_accessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (request_hash) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		entry.RequestHash, entry.RequestType, entry.CanonicalParams, string(entry.ResultPayload), entry.ResultHash,
		entry.CreatedAt.UnixNano(), toNullUnix(entry.ExpiresAt), entry.HitCount, toNullUnix(entry.LastAccessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	if n == 0 {
		return ErrDuplicateEntry
	}
	return nil
}

// Touch implements Store
func (s *SQLiteStore) Touch(ctx context.Context, requestHash string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE result_cache SET hit_count = hit_count + 1, last_accessed_at = ? WHERE request_hash = ?`,
		at.UnixNano(), requestHash,
	)
	if err != nil {
		return fmt.Errorf("failed to touch cache entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCacheMiss
	}
	return nil
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, requestHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM result_cache WHERE request_hash = ?`, requestHash); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpired implements Store
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM result_cache WHERE expires_at IS NOT NULL AND expires_at < ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Stats implements Store
func (s *SQLiteStore) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(hit_count), 0)
		FROM result_cache
	`

	stats := &Stats{Backend: "sqlite"}
	if err := s.db.QueryRowContext(ctx, query, now.UnixNano()).Scan(&stats.Entries, &stats.Expired, &stats.TotalHits); err != nil {
		return nil, fmt.Errorf("failed to get cache stats: %w", err)
	}
	return stats, nil
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
