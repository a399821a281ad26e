package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/landsync/internal/notify"
	"github.com/roach88/landsync/internal/queue"
	"github.com/roach88/landsync/internal/record"
)

// Summary reports the outcome of one replay run.
type Summary struct {
	// Total is the number of writes listed at the start of the run.
	Total int `json:"total"`
	// Synced writes were accepted by the origin and removed.
	Synced int `json:"synced"`
	// Failed writes remain queued.
	Failed int `json:"failed"`
	// Skipped writes were removed by someone else before delivery.
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Replayer sends queued writes to the origin.
type Replayer struct {
	queue   *queue.Queue
	network http.RoundTripper
	emitter notify.Emitter
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithEmitter sets where progress messages go. Defaults to notify.Discard.
func WithEmitter(e notify.Emitter) Option {
	return func(r *Replayer) { r.emitter = e }
}

// WithNow overrides the clock used for message timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Replayer) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replayer) { r.logger = l }
}

// New creates a Replayer. network must reach the origin directly, not through
// the interceptor, so a failed replay is never queued a second time.
func New(q *queue.Queue, network http.RoundTripper, opts ...Option) *Replayer {
	r := &Replayer{
		queue:   q,
		network: network,
		emitter: notify.Discard,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Replay makes one delivery attempt for every queued write, in order.
//
// An empty queue is a no-op and emits nothing. Per-write failures are
// counted, not returned; the error is non-nil only when the queue cannot be
// read or ctx ends mid-run.
func (r *Replayer) Replay(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: r.now()}

	writes, err := r.queue.ListAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("replay: %w", err)
	}
	summary.Total = len(writes)
	if len(writes) == 0 {
		summary.FinishedAt = summary.StartedAt
		return summary, nil
	}

	r.logger.Info("replaying pending writes", "count", len(writes))

	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = r.now()
			return summary, fmt.Errorf("replay: %w", err)
		}

		if _, err := r.queue.Get(ctx, w.ID); err != nil {
			if errors.Is(err, record.ErrNotFound) {
				r.logger.Debug("skipping write removed before delivery", "id", w.ID)
				summary.Skipped++
				continue
			}
			r.logger.Warn("could not confirm write is still queued", "id", w.ID, "error", err)
		}

		if err := r.deliver(ctx, w); err != nil {
			r.logger.Warn("replay failed", "id", w.ID, "method", w.Method, "url", w.URL, "error", err)
			summary.Failed++
			continue
		}

		if err := r.queue.RemoveByID(ctx, w.ID); err != nil {
			// Delivered but still queued; the next run may send it again.
			r.logger.Error("failed to remove delivered write", "id", w.ID, "error", err)
		}
		summary.Synced++
		r.emitter.ItemSynced(w.Body, r.now())
	}

	summary.FinishedAt = r.now()
	r.emitter.BatchCompleted(summary.Synced, summary.Failed, summary.FinishedAt)
	r.logger.Info("replay completed",
		"synced", summary.Synced, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

// deliver sends one write. A transport error or non-2xx status is a failure.
func (r *Replayer) deliver(ctx context.Context, w record.PendingWrite) error {
	req, err := http.NewRequestWithContext(ctx, w.Method, w.URL, bytes.NewReader(w.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range w.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.network.RoundTrip(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("origin returned %s", resp.Status)
	}
	return nil
}
