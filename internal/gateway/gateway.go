// Package gateway is the HTTP surface of landsync.
//
// Every request that is not a control endpoint goes through a reverse proxy
// whose transport is the interceptor, so the application sees cached
// responses and offline-queued answers exactly where it would have seen the
// origin's. Control endpoints live under /_landsync/.
//
// A Gateway owns the background loops that make queued writes drain: the
// connectivity prober and the replay scheduler. Run starts them together with
// the HTTP server and stops all three when the context ends.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/landsync/internal/cache"
	"github.com/roach88/landsync/internal/config"
	"github.com/roach88/landsync/internal/intercept"
	"github.com/roach88/landsync/internal/notify"
	"github.com/roach88/landsync/internal/queue"
	"github.com/roach88/landsync/internal/record"
	"github.com/roach88/landsync/internal/replay"
	"github.com/roach88/landsync/internal/scheduler"
)

// ControlPrefix is the path prefix of the control endpoints.
const ControlPrefix = "/_landsync/"

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Gateway wires the interceptor, queue, replayer and scheduler behind one
// http.Handler.
type Gateway struct {
	cfg     config.Config
	origin  *url.URL
	cache   cache.Store
	queue   *queue.Queue
	network http.RoundTripper
	now     func() time.Time
	logger  *slog.Logger

	hub         *notify.Hub
	prober      *scheduler.Prober
	scheduler   *scheduler.Scheduler
	replayer    *replay.Replayer
	interceptor *intercept.Interceptor
	handler     http.Handler

	mu      sync.Mutex
	lastRun *replay.Summary
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithNetwork sets the transport that reaches the origin. Defaults to
// http.DefaultTransport.
func WithNetwork(rt http.RoundTripper) Option {
	return func(g *Gateway) { g.network = rt }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithNow overrides the clock used for cache timestamps and messages.
func WithNow(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithHub sets the message hub. Defaults to a new hub.
func WithHub(h *notify.Hub) Option {
	return func(g *Gateway) { g.hub = h }
}

// New creates a Gateway for cfg. The queue and cache are owned by the caller.
func New(cfg config.Config, q *queue.Queue, store cache.Store, opts ...Option) (*Gateway, error) {
	origin, err := cfg.OriginURL()
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	g := &Gateway{
		cfg:     cfg,
		origin:  origin,
		cache:   store,
		queue:   q,
		network: http.DefaultTransport,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.hub == nil {
		g.hub = notify.NewHub(notify.DefaultBuffer)
	}

	g.prober = scheduler.NewProber(g.network, cfg.HealthURL(), cfg.ProbeInterval,
		scheduler.WithProberLogger(g.logger))
	g.replayer = replay.New(q, g.network,
		replay.WithEmitter(g.hub),
		replay.WithNow(g.now),
		replay.WithLogger(g.logger))
	g.scheduler = scheduler.New(g.replayer, g.prober,
		scheduler.WithLogger(g.logger),
		scheduler.OnRun(g.recordRun))
	g.interceptor = intercept.New(g.network, store, q, cfg.Intercept(),
		intercept.WithTrigger(g.scheduler),
		intercept.WithObserver(g.prober),
		intercept.WithNow(g.now),
		intercept.WithLogger(g.logger))

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.SetXForwarded()
		},
		Transport:    g.interceptor,
		ErrorHandler: g.proxyError,
		ErrorLog:     slog.NewLogLogger(g.logger.Handler(), slog.LevelWarn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+ControlPrefix+"status", g.handleStatus)
	mux.HandleFunc("GET "+ControlPrefix+"pending", g.handlePending)
	mux.HandleFunc("POST "+ControlPrefix+"sync", g.handleSync)
	mux.Handle("GET "+ControlPrefix+"events", g.hub)
	mux.Handle("/", proxy)
	g.handler = logRequests(mux, g.logger)

	return g, nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// Hub returns the message hub replay progress is published on.
func (g *Gateway) Hub() *notify.Hub { return g.hub }

// Prober returns the connectivity prober.
func (g *Gateway) Prober() *scheduler.Prober { return g.prober }

// Scheduler returns the replay scheduler.
func (g *Gateway) Scheduler() *scheduler.Scheduler { return g.scheduler }

// Install prepares the cache for this version: stale partitions are dropped,
// the organizations default is seeded and the app shell is precached. The
// organizations entry and the offline page are pinned against eviction.
// Precache failures are logged; the origin may be offline at install time.
func (g *Gateway) Install(ctx context.Context) error {
	dropped, err := cache.Activate(ctx, g.cache, g.cfg.Partitions()...)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}

	entry, err := intercept.SeedOrganizations(g.cfg.DefaultOrganizations, g.now())
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	orgs := g.origin.ResolveReference(&url.URL{Path: g.cfg.OrganizationsPath})
	cache.Pin(g.cache, g.cfg.Cache.DataPartition, cache.Key(orgs))
	cache.Pin(g.cache, g.cfg.Cache.StaticPartition, g.cfg.Cache.OfflinePage)
	if _, err := cache.Seed(ctx, g.cache, g.cfg.Cache.DataPartition, cache.Key(orgs), entry); err != nil {
		return fmt.Errorf("install: %w", err)
	}

	stored := cache.Precache(ctx, g.cache, g.cfg.Cache.StaticPartition, g.network, g.origin, g.cfg.Cache.Precache)
	g.logger.Info("cache installed",
		"dropped", len(dropped), "precached", stored, "requested", len(g.cfg.Cache.Precache))
	return nil
}

// Sync runs one replay pass immediately.
func (g *Gateway) Sync(ctx context.Context) (replay.Summary, error) {
	summary, err := g.replayer.Replay(ctx)
	g.recordRun(summary, err)
	return summary, err
}

// Run serves on ln and runs the prober and scheduler until ctx ends.
// Requests in flight when ctx ends get up to 10s to finish. It returns nil
// on a clean shutdown.
func (g *Gateway) Run(ctx context.Context, ln net.Listener) error {
	// Requests keep ctx's values but not its cancellation, so Shutdown can
	// let in-flight writes reach the origin or the queue.
	base := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           g,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
		ErrorLog:          slog.NewLogLogger(g.logger.Handler(), slog.LevelWarn),
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info("gateway listening", "addr", ln.Addr().String(), "origin", g.origin.String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	eg.Go(func() error { return g.prober.Run(ctx) })
	eg.Go(func() error { return g.scheduler.Run(ctx) })

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Status is the body of GET /_landsync/status.
type Status struct {
	Online     bool            `json:"online"`
	Pending    int             `json:"pending"`
	Partitions []string        `json:"partitions"`
	LastSync   *replay.Summary `json:"last_sync,omitempty"`
}

func (g *Gateway) status(ctx context.Context) (Status, error) {
	pending, err := g.queue.Len(ctx)
	if err != nil {
		return Status{}, err
	}
	partitions, err := g.cache.Partitions(ctx)
	if err != nil {
		return Status{}, err
	}

	g.mu.Lock()
	last := g.lastRun
	g.mu.Unlock()

	return Status{
		Online:     g.prober.Online(),
		Pending:    pending,
		Partitions: partitions,
		LastSync:   last,
	}, nil
}

func (g *Gateway) recordRun(summary replay.Summary, err error) {
	if err != nil || summary.Total == 0 {
		return
	}
	g.mu.Lock()
	g.lastRun = &summary
	g.mu.Unlock()
}

// pendingView is one entry of GET /_landsync/pending. Bodies are omitted.
type pendingView struct {
	ID          string    `json:"id"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	BusinessKey string    `json:"business_key,omitempty"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPendingView(w record.PendingWrite) pendingView {
	return pendingView{
		ID:          w.ID,
		Method:      w.Method,
		URL:         w.URL,
		BusinessKey: w.BusinessKey,
		Size:        len(w.Body),
		CreatedAt:   w.CreatedAt,
	}
}
