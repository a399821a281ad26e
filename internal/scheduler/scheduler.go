package scheduler

import (
	"context"
	"log/slog"

	"github.com/roach88/landsync/internal/replay"
)

// Replayer runs one replay pass.
type Replayer interface {
	Replay(ctx context.Context) (replay.Summary, error)
}

// Connectivity reports origin reachability. *Prober implements it.
type Connectivity interface {
	Online() bool
	Restored() <-chan struct{}
}

// Scheduler serializes replay runs triggered by Arm and by connectivity
// restores.
type Scheduler struct {
	replayer Replayer
	conn     Connectivity
	logger   *slog.Logger
	onRun    func(replay.Summary, error)

	// armed coalesces Arm calls (buffered, size 1)
	armed chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// OnRun registers a callback invoked after every replay run.
func OnRun(fn func(replay.Summary, error)) Option {
	return func(s *Scheduler) { s.onRun = fn }
}

// New creates a Scheduler.
func New(r Replayer, conn Connectivity, opts ...Option) *Scheduler {
	s := &Scheduler{
		replayer: r,
		conn:     conn,
		logger:   slog.Default(),
		armed:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm requests a replay. It never blocks; arming an already armed scheduler
// is a no-op.
func (s *Scheduler) Arm() {
	select {
	case s.armed <- struct{}{}:
	default:
	}
}

// Run handles triggers until ctx is done. Replays run one at a time on the
// calling goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping: context cancelled")
			return ctx.Err()

		case <-s.armed:
			if !s.conn.Online() {
				// The next restore replays everything queued so far.
				s.logger.Debug("armed while offline, waiting for connectivity")
				continue
			}
			s.run(ctx, "armed")

		case <-s.conn.Restored():
			s.run(ctx, "connectivity restored")
		}
	}
}

func (s *Scheduler) run(ctx context.Context, reason string) {
	summary, err := s.replayer.Replay(ctx)
	if err != nil {
		s.logger.Error("replay run failed", "reason", reason, "error", err)
	} else if summary.Total > 0 {
		s.logger.Info("replay run finished", "reason", reason,
			"synced", summary.Synced, "failed", summary.Failed, "skipped", summary.Skipped)
	}
	if s.onRun != nil {
		s.onRun(summary, err)
	}
}
