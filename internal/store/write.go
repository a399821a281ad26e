package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/roach88/landsync/internal/record"
)

// InsertPendingWrite appends a pending write to the queue.
// Returns the assigned seq and whether a new row was inserted.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency. If a write with the same
// ID already exists, returns the existing seq and inserted=false.
func (s *Store) InsertPendingWrite(ctx context.Context, w record.PendingWrite) (seq int64, inserted bool, err error) {
	headersJSON, err := marshalHeader(w.Header)
	if err != nil {
		return 0, false, fmt.Errorf("insert pending write: %w", err)
	}

	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("insert pending write: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO pending_writes
		(id, url, method, headers, body, business_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		w.ID,
		w.URL,
		w.Method,
		headersJSON,
		w.Body,
		w.BusinessKey,
		w.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert pending write: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert pending write: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		seq, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("insert pending write: last insert id: %w", err)
		}
		inserted = true
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT seq FROM pending_writes WHERE id = ?
		`, w.ID).Scan(&seq)
		if err != nil {
			return 0, false, fmt.Errorf("insert pending write: select existing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("insert pending write: commit: %w", err)
	}

	return seq, inserted, nil
}

// DeletePendingWrite removes the pending write with the given ID.
// Deleting an absent ID is not an error.
func (s *Store) DeletePendingWrite(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_writes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pending write %s: %w", id, err)
	}
	return nil
}

// DeletePendingWritesByKey removes every pending write carrying businessKey
// and returns how many were removed. An empty key matches nothing.
func (s *Store) DeletePendingWritesByKey(ctx context.Context, businessKey string) (int64, error) {
	if businessKey == "" {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_writes WHERE business_key = ?
	`, businessKey)
	if err != nil {
		return 0, fmt.Errorf("delete pending writes by key %q: %w", businessKey, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete pending writes by key %q: rows affected: %w", businessKey, err)
	}
	return n, nil
}

// PurgePendingWrites removes every pending write and returns the count.
func (s *Store) PurgePendingWrites(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pending_writes`)
	if err != nil {
		return 0, fmt.Errorf("purge pending writes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge pending writes: rows affected: %w", err)
	}
	return n, nil
}

// marshalHeader stores headers as a JSON object. A nil header is stored as
// "{}" so the column is never NULL.
func marshalHeader(h http.Header) (string, error) {
	if len(h) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("marshal headers: %w", err)
	}
	return string(b), nil
}

func unmarshalHeader(s string) (http.Header, error) {
	h := make(http.Header)
	if s == "" {
		return h, nil
	}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	return h, nil
}
