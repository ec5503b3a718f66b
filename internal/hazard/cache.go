package hazard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/atlasclimate/atlas/internal/database"
	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/telemetry"
)

// DefaultCacheTTL is how long an upstream sample stays fresh. Environmental
// summaries drift on seasonal timescales, so a day is comfortable.
const DefaultCacheTTL = 24 * time.Hour

// Cache persists upstream hazard samples in the local cache database,
// msgpack-encoded and keyed on the rounded coordinate. A cache miss is a
// nil sample, never an error the caller must branch on.
type Cache struct {
	log     zerolog.Logger
	db      *database.DB
	ttl     time.Duration
	metrics *telemetry.Metrics // nil when uninstrumented
}

// NewCache prepares the cache table. metrics may be nil.
func NewCache(db *database.DB, ttl time.Duration, metrics *telemetry.Metrics, log zerolog.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		log:     log.With().Str("component", "hazard_cache").Logger(),
		db:      db,
		ttl:     ttl,
		metrics: metrics,
	}

	_, err := db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS hazard_samples (
			coord_key  TEXT PRIMARY KEY,
			sample     BLOB NOT NULL,
			fetched_at INTEGER NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create hazard_samples table: %w", err)
	}
	return c, nil
}

func coordKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f:%.4f", lat, lon)
}

// Get returns the cached sample for a coordinate, or nil on a miss or an
// expired row.
func (c *Cache) Get(ctx context.Context, lat, lon float64) *domain.HazardSample {
	var blob []byte
	var fetchedAt int64
	err := c.db.Conn().QueryRowContext(ctx,
		`SELECT sample, fetched_at FROM hazard_samples WHERE coord_key = ?`,
		coordKey(lat, lon),
	).Scan(&blob, &fetchedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn().Err(err).Msg("cache read failed")
		}
		c.miss()
		return nil
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		c.miss()
		return nil
	}

	var sample domain.HazardSample
	if err := msgpack.Unmarshal(blob, &sample); err != nil {
		c.log.Warn().Err(err).Msg("cache row undecodable, dropping")
		_, _ = c.db.Conn().ExecContext(ctx,
			`DELETE FROM hazard_samples WHERE coord_key = ?`, coordKey(lat, lon))
		c.miss()
		return nil
	}
	c.hit()
	return &sample
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

// Put stores a sample; write failures are logged, not surfaced.
func (c *Cache) Put(ctx context.Context, lat, lon float64, sample domain.HazardSample) {
	blob, err := msgpack.Marshal(sample)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache encode failed")
		return
	}
	_, err = c.db.Conn().ExecContext(ctx,
		`INSERT OR REPLACE INTO hazard_samples (coord_key, sample, fetched_at) VALUES (?, ?, ?)`,
		coordKey(lat, lon), blob, time.Now().Unix())
	if err != nil {
		c.log.Warn().Err(err).Msg("cache write failed")
	}
}

// Sweep deletes expired rows. Run by the maintenance scheduler.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.Conn().ExecContext(ctx,
		`DELETE FROM hazard_samples WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache sweep failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.log.Info().Int64("rows", n).Msg("swept expired hazard samples")
	}
	return n, nil
}

// RecentKeys lists coordinates cached within the window, newest first. The
// climatology refresh job re-fetches NDVI for these.
func (c *Cache) RecentKeys(ctx context.Context, window time.Duration, limit int) ([]string, error) {
	cutoff := time.Now().Add(-window).Unix()
	rows, err := c.db.Conn().QueryContext(ctx,
		`SELECT coord_key FROM hazard_samples WHERE fetched_at >= ? ORDER BY fetched_at DESC LIMIT ?`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
