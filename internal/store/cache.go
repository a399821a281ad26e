package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/landsync/internal/cache"
)

// CacheBackend exposes the cache_entries table as a cache.Store.
// It shares the Store's connection; closing it does not close the database.
type CacheBackend struct {
	db *sql.DB
}

var _ cache.Store = (*CacheBackend)(nil)

// Cache returns the persistent cache partitions backed by this store.
func (s *Store) Cache() *CacheBackend {
	return &CacheBackend{db: s.db}
}

// Get returns the snapshot stored under key in partition.
func (c *CacheBackend) Get(ctx context.Context, partition, key string) (*cache.Entry, bool, error) {
	var (
		e           cache.Entry
		headersJSON string
		storedAt    int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT status, headers, body, stored_at
		FROM cache_entries
		WHERE partition = ? AND cache_key = ?
	`, partition, key).Scan(&e.Status, &headersJSON, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %s/%s: %w", partition, key, err)
	}

	e.Header, err = unmarshalHeader(headersJSON)
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %s/%s: %w", partition, key, err)
	}
	e.StoredAt = time.UnixMilli(storedAt).UTC()
	return &e, true, nil
}

// Put upserts the snapshot; the newest write wins.
func (c *CacheBackend) Put(ctx context.Context, partition, key string, entry *cache.Entry) error {
	headersJSON, err := marshalHeader(entry.Header)
	if err != nil {
		return fmt.Errorf("put cache entry %s/%s: %w", partition, key, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (partition, cache_key, status, headers, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(partition, cache_key) DO UPDATE SET
			status = excluded.status,
			headers = excluded.headers,
			body = excluded.body,
			stored_at = excluded.stored_at
	`, partition, key, entry.Status, headersJSON, entry.Body, entry.StoredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put cache entry %s/%s: %w", partition, key, err)
	}
	return nil
}

// Partitions lists partitions holding at least one entry, in name order.
func (c *CacheBackend) Partitions(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT partition FROM cache_entries ORDER BY partition ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query partitions: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan partition: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partitions: %w", err)
	}
	return names, nil
}

// DropPartition deletes every entry in partition.
func (c *CacheBackend) DropPartition(ctx context.Context, partition string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE partition = ?`, partition)
	if err != nil {
		return fmt.Errorf("drop partition %s: %w", partition, err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the database.
func (c *CacheBackend) Close() error {
	return nil
}
