// Package scheduler decides when to replay queued writes.
//
// A Prober tracks whether the origin is reachable, both by polling its health
// endpoint and by observing live traffic. A Scheduler replays when it is
// armed while online, and on every offline-to-online transition whether or
// not it was armed, so a write queued just before a crash is still replayed
// after the next reconnect.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Prober tracks origin reachability.
//
// The initial state is offline, so the first successful probe or request
// counts as a restore and drains anything left over from a previous run.
//
// Thread-safety: all methods are safe for concurrent use.
type Prober struct {
	network   http.RoundTripper
	healthURL string
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	online bool

	// restored signals offline→online transitions (buffered, size 1)
	restored chan struct{}
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeTimeout bounds each health request. Defaults to the interval.
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

// WithProberLogger sets the logger.
func WithProberLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) { p.logger = l }
}

// NewProber creates a Prober that GETs healthURL through network every
// interval.
func NewProber(network http.RoundTripper, healthURL string, interval time.Duration, opts ...ProberOption) *Prober {
	p := &Prober{
		network:   network,
		healthURL: healthURL,
		interval:  interval,
		timeout:   interval,
		logger:    slog.Default(),
		restored:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Observe records the outcome of a network attempt.
func (p *Prober) Observe(online bool) {
	p.mu.Lock()
	was := p.online
	p.online = online
	p.mu.Unlock()

	switch {
	case online && !was:
		p.logger.Info("origin reachable")
		// Non-blocking - buffer of 1 coalesces multiple signals
		select {
		case p.restored <- struct{}{}:
		default:
		}
	case !online && was:
		p.logger.Warn("origin unreachable")
	}
}

// Online reports the last observed state.
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Restored delivers a value after each offline→online transition.
func (p *Prober) Restored() <-chan struct{} {
	return p.restored
}

// Probe performs one health check and records the result. Any 2xx response
// counts as online.
func (p *Prober) Probe(ctx context.Context) bool {
	probeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	online := false
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		p.logger.Error("invalid health url", "url", p.healthURL, "error", err)
		return false
	}
	resp, err := p.network.RoundTrip(req)
	if err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		online = resp.StatusCode >= 200 && resp.StatusCode <= 299
	} else {
		p.logger.Debug("health probe failed", "url", p.healthURL, "error", err)
	}

	// A probe cut short by shutdown says nothing about the origin.
	if !online && ctx.Err() != nil {
		return p.Online()
	}
	p.Observe(online)
	return online
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	p.logger.Info("prober starting", "url", p.healthURL, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("prober stopping: context cancelled")
			return ctx.Err()
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
