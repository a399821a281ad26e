// Package queue is the durable store of writes that could not reach the
// origin.
//
// Writes are kept in arrival order. A write leaves the queue in exactly two
// ways: it is replayed successfully (RemoveByID), or a later live write for
// the same business key succeeds and supersedes it (RemoveByBusinessKey).
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/landsync/internal/record"
)

// ErrQueueFull is returned by Enqueue when a record cap is configured and
// already reached.
var ErrQueueFull = errors.New("pending write queue is full")

// Backend persists pending writes. *store.Store is the durable
// implementation; MemoryBackend is used in tests.
type Backend interface {
	InsertPendingWrite(ctx context.Context, w record.PendingWrite) (seq int64, inserted bool, err error)
	ListPendingWrites(ctx context.Context) ([]record.PendingWrite, error)
	ReadPendingWrite(ctx context.Context, id string) (record.PendingWrite, error)
	DeletePendingWrite(ctx context.Context, id string) error
	DeletePendingWritesByKey(ctx context.Context, businessKey string) (int64, error)
	PurgePendingWrites(ctx context.Context) (int64, error)
	CountPendingWrites(ctx context.Context) (int, error)
}

// Clock supplies enqueue timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Queue wraps a Backend with ID assignment, business-key extraction and
// validation.
type Queue struct {
	backend    Backend
	ids        record.IDGenerator
	clock      Clock
	keyField   string
	maxRecords int
	logger     *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithIDGenerator overrides the default UUIDv7 identifiers.
func WithIDGenerator(g record.IDGenerator) Option {
	return func(q *Queue) { q.ids = g }
}

// WithClock overrides the wall clock used for CreatedAt.
func WithClock(c Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithBusinessKeyField sets the JSON field read from write bodies.
func WithBusinessKeyField(field string) Option {
	return func(q *Queue) { q.keyField = field }
}

// WithMaxRecords caps the number of queued writes. 0 means unbounded.
func WithMaxRecords(n int) Option {
	return func(q *Queue) { q.maxRecords = n }
}

// WithLogger sets the logger for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// New creates a Queue over backend.
func New(backend Backend, opts ...Option) *Queue {
	q := &Queue{
		backend:  backend,
		ids:      record.UUIDv7Generator{},
		clock:    systemClock{},
		keyField: record.DefaultBusinessKeyField,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends w to the tail of the queue and returns the stored record.
//
// Missing fields are filled in: ID from the generator, CreatedAt from the
// clock, BusinessKey from the body. The method is upper-cased. A persistence
// failure is logged and returned; the caller decides what the application
// sees.
func (q *Queue) Enqueue(ctx context.Context, w record.PendingWrite) (record.PendingWrite, error) {
	w = w.Clone()
	if w.ID == "" {
		w.ID = q.ids.Generate()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = q.clock.Now()
	}
	w.Method = strings.ToUpper(w.Method)
	if w.BusinessKey == "" {
		w.BusinessKey = record.ExtractBusinessKey(w.Body, q.keyField)
	} else {
		w.BusinessKey = record.NormalizeKey(w.BusinessKey)
	}

	if err := w.Validate(); err != nil {
		return record.PendingWrite{}, fmt.Errorf("enqueue: %w", err)
	}

	if q.maxRecords > 0 {
		n, err := q.backend.CountPendingWrites(ctx)
		if err != nil {
			q.logger.Error("failed to count pending writes", "id", w.ID, "error", err)
			return record.PendingWrite{}, fmt.Errorf("enqueue %s: %w", w.ID, err)
		}
		if n >= q.maxRecords {
			q.logger.Warn("pending write rejected, queue full",
				"id", w.ID, "url", w.URL, "pending", n, "max", q.maxRecords)
			return record.PendingWrite{}, fmt.Errorf("enqueue %s: %w", w.ID, ErrQueueFull)
		}
	}

	seq, inserted, err := q.backend.InsertPendingWrite(ctx, w)
	if err != nil {
		q.logger.Error("failed to persist pending write",
			"id", w.ID, "method", w.Method, "url", w.URL, "error", err)
		return record.PendingWrite{}, fmt.Errorf("enqueue %s: %w", w.ID, err)
	}
	w.Seq = seq

	if inserted {
		q.logger.Info("queued pending write",
			"id", w.ID, "method", w.Method, "url", w.URL, "business_key", w.BusinessKey)
	}
	return w, nil
}

// ListAll returns every queued write, oldest first.
func (q *Queue) ListAll(ctx context.Context) ([]record.PendingWrite, error) {
	writes, err := q.backend.ListPendingWrites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending writes: %w", err)
	}
	return writes, nil
}

// Get returns the queued write with id, or an error wrapping
// record.ErrNotFound.
func (q *Queue) Get(ctx context.Context, id string) (record.PendingWrite, error) {
	return q.backend.ReadPendingWrite(ctx, id)
}

// RemoveByID deletes the write with id. Removing an absent id is a no-op.
func (q *Queue) RemoveByID(ctx context.Context, id string) error {
	if err := q.backend.DeletePendingWrite(ctx, id); err != nil {
		return fmt.Errorf("remove pending write: %w", err)
	}
	return nil
}

// RemoveByBusinessKey deletes every write carrying key and returns how many
// were removed. An empty key removes nothing.
func (q *Queue) RemoveByBusinessKey(ctx context.Context, key string) (int, error) {
	key = record.NormalizeKey(key)
	if key == "" {
		return 0, nil
	}
	n, err := q.backend.DeletePendingWritesByKey(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("remove pending writes for %q: %w", key, err)
	}
	if n > 0 {
		q.logger.Info("superseded pending writes", "business_key", key, "removed", n)
	}
	return int(n), nil
}

// Purge deletes every queued write and returns the count.
func (q *Queue) Purge(ctx context.Context) (int, error) {
	n, err := q.backend.PurgePendingWrites(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge pending writes: %w", err)
	}
	return int(n), nil
}

// Len returns the number of queued writes.
func (q *Queue) Len(ctx context.Context) (int, error) {
	n, err := q.backend.CountPendingWrites(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pending writes: %w", err)
	}
	return n, nil
}

// BusinessKey extracts the business key from a write body using the
// configured field.
func (q *Queue) BusinessKey(body []byte) string {
	return record.ExtractBusinessKey(body, q.keyField)
}
