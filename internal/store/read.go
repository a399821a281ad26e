package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/landsync/internal/record"
)

// ListPendingWrites returns every pending write, oldest first.
// Results are ordered by seq ASC, which is insertion order.
//
// Returns an empty slice (not nil) if the queue is empty.
func (s *Store) ListPendingWrites(ctx context.Context) ([]record.PendingWrite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, url, method, headers, body, business_key, created_at
		FROM pending_writes
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending writes: %w", err)
	}
	defer rows.Close()

	writes := []record.PendingWrite{}
	for rows.Next() {
		w, err := scanPendingWrite(rows)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending writes: %w", err)
	}

	return writes, nil
}

// ReadPendingWrite returns a single pending write by ID.
// Returns record.ErrNotFound if no such write is queued.
func (s *Store) ReadPendingWrite(ctx context.Context, id string) (record.PendingWrite, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, url, method, headers, body, business_key, created_at
		FROM pending_writes
		WHERE id = ?
	`, id)

	w, err := scanPendingWrite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.PendingWrite{}, fmt.Errorf("read pending write %s: %w", id, record.ErrNotFound)
	}
	if err != nil {
		return record.PendingWrite{}, fmt.Errorf("read pending write %s: %w", id, err)
	}
	return w, nil
}

// CountPendingWrites returns the number of queued writes.
func (s *Store) CountPendingWrites(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_writes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending writes: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingWrite(row rowScanner) (record.PendingWrite, error) {
	var (
		w           record.PendingWrite
		headersJSON string
		createdAt   int64
	)
	err := row.Scan(&w.Seq, &w.ID, &w.URL, &w.Method, &headersJSON, &w.Body, &w.BusinessKey, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.PendingWrite{}, err
		}
		return record.PendingWrite{}, fmt.Errorf("scan pending write: %w", err)
	}

	w.Header, err = unmarshalHeader(headersJSON)
	if err != nil {
		return record.PendingWrite{}, fmt.Errorf("scan pending write %s: %w", w.ID, err)
	}
	w.CreatedAt = time.UnixMilli(createdAt).UTC()
	return w, nil
}
