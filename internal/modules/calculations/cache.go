// Package calculations stores solved frontiers so identical problems are not re-solved.
package calculations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache provides key-value storage with expiration on top of the calculation_cache table.
// Values are msgpack-encoded.
type Cache struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// Stats summarises the cache contents.
type Stats struct {
	Entries int `json:"entries" msgpack:"entries"`
	Expired int `json:"expired" msgpack:"expired"`
}

// NewCache creates a new cache instance.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		now: time.Now,
		log: log.With().Str("component", "calculation_cache").Logger(),
	}
}

// Set stores value under key until ttl elapses, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	now := c.now()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO calculation_cache (key, value, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, key, data, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Get decodes the entry stored under key into dest.
// Returns ErrMiss if the key doesn't exist or is expired.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM calculation_cache WHERE key = ?", key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if c.now().Unix() >= expiresAt {
		return ErrMiss
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes a cache entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM calculation_cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// Prune removes every entry expired at now and returns how many were removed.
func (c *Cache) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM calculation_cache WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune calculation cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	if removed > 0 {
		c.log.Debug().Int64("removed", removed).Msg("Pruned expired calculations")
	}
	return removed, nil
}

// Count returns the number of stored entries, expired ones included.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calculation_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Stats returns the total and expired entry counts.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM calculation_cache
	`, c.now().Unix()).Scan(&s.Entries, &s.Expired)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return s, nil
}
