// Package intercept routes every outbound request through network, cache or
// the pending-write queue.
//
// Requests whose path starts with the API prefix follow the API policy:
// reads are cached and fall back to the data partition; writes that cannot be
// delivered are queued and answered with an offline-queued response. All
// other requests follow the static policy: responses are cached in the static
// partition and navigations fall back to the offline page.
package intercept

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/landsync/internal/cache"
	"github.com/roach88/landsync/internal/queue"
	"github.com/roach88/landsync/internal/record"
)

// Response headers set by the interceptor.
const (
	// HeaderSource reports where the response came from.
	HeaderSource = "X-Landsync-Source"
	// HeaderOffline is "queued" on offline-queued responses.
	HeaderOffline = "X-Landsync-Offline"
	// HeaderQueuedID carries the ID of the queued write.
	HeaderQueuedID = "X-Landsync-Queued-Id"
)

// Values of HeaderSource.
const (
	SourceNetwork     = "network"
	SourceCache       = "cache"
	SourceDefault     = "default"
	SourceQueued      = "queued"
	SourceOfflinePage = "offline-page"
)

// DefaultOfflineMessage is the human-readable text in offline-queued
// responses.
const DefaultOfflineMessage = "ข้อมูลถูกเก็บไว้แล้ว จะส่งเมื่อมีการเชื่อมต่อใหม่"

// Trigger is armed after a write is queued.
type Trigger interface {
	Arm()
}

// Observer is told the outcome of every network attempt.
type Observer interface {
	Observe(online bool)
}

// Config holds interceptor policy settings.
type Config struct {
	// APIPrefix selects the API policy by path prefix.
	APIPrefix string
	// PrivateTimeout bounds API reads against private or loopback hosts.
	// Zero disables the bound.
	PrivateTimeout time.Duration
	// OrganizationsPath is answered with DefaultOrganizations when offline
	// and uncached.
	OrganizationsPath    string
	DefaultOrganizations []string
	StaticPartition      string
	DataPartition        string
	// OfflinePageKey is the static-partition key of the offline page.
	OfflinePageKey string
	OfflineMessage string
}

// DefaultConfig returns the settings used by the land-parcel front end.
func DefaultConfig() Config {
	return Config{
		APIPrefix:            "/api/",
		PrivateTimeout:       5 * time.Second,
		OrganizationsPath:    "/api/organizations",
		DefaultOrganizations: []string{"อบต.ไชยคราม", "อบต.บางไผ่", "อบต.สามโคก"},
		StaticPartition:      cache.DefaultStaticPartition,
		DataPartition:        cache.DefaultDataPartition,
		OfflinePageKey:       "/offline.html",
		OfflineMessage:       DefaultOfflineMessage,
	}
}

// OfflineQueuedResponse is the body returned for a write that was queued
// instead of delivered.
type OfflineQueuedResponse struct {
	Success bool   `json:"success"`
	Offline bool   `json:"offline"`
	Message string `json:"message"`
}

// Interceptor is an http.RoundTripper that applies the API and static
// policies in front of a network transport.
type Interceptor struct {
	network  http.RoundTripper
	cache    cache.Store
	queue    *queue.Queue
	cfg      Config
	trigger  Trigger
	observer Observer
	now      func() time.Time
	logger   *slog.Logger
}

var _ http.RoundTripper = (*Interceptor)(nil)

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithTrigger sets the trigger armed after each queued write.
func WithTrigger(t Trigger) Option {
	return func(i *Interceptor) { i.trigger = t }
}

// WithObserver sets the connectivity observer.
func WithObserver(o Observer) Option {
	return func(i *Interceptor) { i.observer = o }
}

// WithNow overrides the clock used for cache timestamps.
func WithNow(now func() time.Time) Option {
	return func(i *Interceptor) { i.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interceptor) { i.logger = l }
}

// New creates an Interceptor. network is the transport that actually reaches
// the origin.
func New(network http.RoundTripper, store cache.Store, q *queue.Queue, cfg Config, opts ...Option) *Interceptor {
	i := &Interceptor{
		network: network,
		cache:   store,
		queue:   q,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return i.network.RoundTrip(req)
	}

	if strings.HasPrefix(req.URL.Path, i.cfg.APIPrefix) {
		switch {
		case req.Method == http.MethodGet:
			return i.apiRead(req)
		case record.IsWriteMethod(req.Method):
			return i.apiWrite(req)
		default:
			return i.network.RoundTrip(req)
		}
	}

	if req.Method == http.MethodGet {
		return i.static(req)
	}
	return i.network.RoundTrip(req)
}

// apiRead is network-first with the data partition as fallback.
func (i *Interceptor) apiRead(req *http.Request) (*http.Response, error) {
	key := cache.Key(req.URL)

	out := req
	var deadline context.Context
	if i.cfg.PrivateTimeout > 0 && IsPrivateHost(req.URL.Hostname()) {
		ctx, cancel := context.WithTimeout(req.Context(), i.cfg.PrivateTimeout)
		defer cancel()
		deadline = ctx
		out = req.Clone(ctx)
	}

	resp, body, err := i.fetch(out)
	if err == nil {
		if isSuccess(resp.StatusCode) {
			i.store(req.Context(), i.cfg.DataPartition, key, resp, body)
		}
		return resp, nil
	}

	cause := KindNetwork
	if deadline != nil && errors.Is(deadline.Err(), context.DeadlineExceeded) {
		cause = KindTimeout
		i.logger.Info("private host timed out, falling back to cache", "key", key, "timeout", i.cfg.PrivateTimeout)
	} else {
		i.logger.Info("network failed for api read", "key", key, "error", err)
	}

	if entry, ok := i.lookup(req.Context(), i.cfg.DataPartition, key); ok {
		return withSource(entry.Response(req), SourceCache), nil
	}

	if req.URL.Path == i.cfg.OrganizationsPath {
		resp, err := i.defaultOrganizations(req)
		if err == nil {
			return resp, nil
		}
		i.logger.Error("failed to build default organizations", "error", err)
	}

	return nil, &DeliveryError{Kind: KindCacheMiss, Cause: cause, Method: req.Method, URL: req.URL.String(), Err: err}
}

// apiWrite delivers the write or queues it.
func (i *Interceptor) apiWrite(req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, &DeliveryError{Kind: KindNetwork, Method: req.Method, URL: req.URL.String(), Err: err}
	}

	out := req.Clone(req.Context())
	setBody(out, body)

	resp, _, err := i.fetch(out)
	if err == nil {
		if isSuccess(resp.StatusCode) {
			i.supersede(req.Context(), body)
		}
		return resp, nil
	}

	// Writes canceled by the caller are not queued.
	if req.Context().Err() != nil {
		return nil, &DeliveryError{Kind: KindNetwork, Method: req.Method, URL: req.URL.String(), Err: err}
	}

	queued, qerr := i.queue.Enqueue(req.Context(), record.PendingWrite{
		URL:    req.URL.String(),
		Method: req.Method,
		Header: cache.StripHopByHop(req.Header),
		Body:   body,
	})
	if qerr != nil {
		return nil, &DeliveryError{Kind: KindPersistence, Method: req.Method, URL: req.URL.String(), Err: qerr}
	}

	if i.trigger != nil {
		i.trigger.Arm()
	}

	return i.offlineQueued(req, queued.ID)
}

// static is network-first with the static partition and offline page as
// fallbacks.
func (i *Interceptor) static(req *http.Request) (*http.Response, error) {
	key := cache.Key(req.URL)

	resp, body, err := i.fetch(req)
	if err == nil {
		if isSuccess(resp.StatusCode) {
			i.store(req.Context(), i.cfg.StaticPartition, key, resp, body)
		}
		return resp, nil
	}
	i.logger.Info("network failed, checking cache", "key", key, "error", err)

	if entry, ok := i.lookup(req.Context(), i.cfg.StaticPartition, key); ok {
		return withSource(entry.Response(req), SourceCache), nil
	}

	if IsNavigation(req) {
		if entry, ok := i.lookup(req.Context(), i.cfg.StaticPartition, i.cfg.OfflinePageKey); ok {
			return withSource(entry.Response(req), SourceOfflinePage), nil
		}
		return withSource(textResponse(req, http.StatusServiceUnavailable, "Offline"), SourceOfflinePage), nil
	}

	return nil, &DeliveryError{Kind: KindCacheMiss, Cause: KindNetwork, Method: req.Method, URL: req.URL.String(), Err: err}
}

// fetch sends req over the network and buffers the response body so it can
// be both cached and returned. The body is read before any deadline on req's
// context is released.
func (i *Interceptor) fetch(req *http.Request) (*http.Response, []byte, error) {
	resp, err := i.network.RoundTrip(req)
	if err != nil {
		i.observe(false)
		return nil, nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		i.observe(false)
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	i.observe(true)

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Del("Content-Length")
	resp.Header.Set(HeaderSource, SourceNetwork)
	return resp, body, nil
}

func (i *Interceptor) store(ctx context.Context, partition, key string, resp *http.Response, body []byte) {
	entry := cache.NewEntry(resp, body, i.now())
	entry.Header.Del(HeaderSource)
	if err := i.cache.Put(ctx, partition, key, entry); err != nil {
		i.logger.Error("failed to cache response", "partition", partition, "key", key, "error", err)
		return
	}
	i.logger.Debug("cached response", "partition", partition, "key", key)
}

func (i *Interceptor) lookup(ctx context.Context, partition, key string) (*cache.Entry, bool) {
	entry, ok, err := i.cache.Get(ctx, partition, key)
	if err != nil {
		i.logger.Error("cache lookup failed", "partition", partition, "key", key, "error", err)
		return nil, false
	}
	return entry, ok
}

// supersede removes queued writes made stale by a successful live write.
// Failures are logged; the live write already succeeded.
func (i *Interceptor) supersede(ctx context.Context, body []byte) {
	key := i.queue.BusinessKey(body)
	if key == "" {
		return
	}
	if _, err := i.queue.RemoveByBusinessKey(ctx, key); err != nil {
		i.logger.Error("failed to clean up superseded writes", "business_key", key, "error", err)
	}
}

func (i *Interceptor) observe(online bool) {
	if i.observer != nil {
		i.observer.Observe(online)
	}
}

func (i *Interceptor) defaultOrganizations(req *http.Request) (*http.Response, error) {
	orgs := i.cfg.DefaultOrganizations
	if orgs == nil {
		orgs = []string{}
	}
	body, err := json.Marshal(orgs)
	if err != nil {
		return nil, err
	}
	return withSource(jsonResponse(req, http.StatusOK, body), SourceDefault), nil
}

func (i *Interceptor) offlineQueued(req *http.Request, id string) (*http.Response, error) {
	body, err := json.Marshal(OfflineQueuedResponse{
		Success: true,
		Offline: true,
		Message: i.cfg.OfflineMessage,
	})
	if err != nil {
		return nil, &DeliveryError{Kind: KindPersistence, Method: req.Method, URL: req.URL.String(), Err: err}
	}
	resp := withSource(jsonResponse(req, http.StatusOK, body), SourceQueued)
	resp.Header.Set(HeaderOffline, "queued")
	resp.Header.Set(HeaderQueuedID, id)
	return resp, nil
}

// IsNavigation reports whether req is a top-level page load.
func IsNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return req.Method == http.MethodGet && strings.Contains(req.Header.Get("Accept"), "text/html")
}

// SeedOrganizations returns the snapshot stored under the organizations path
// at install time.
func SeedOrganizations(orgs []string, now time.Time) (*cache.Entry, error) {
	body, err := json.Marshal(orgs)
	if err != nil {
		return nil, fmt.Errorf("seed organizations: %w", err)
	}
	return &cache.Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"application/json"}},
		Body:     body,
		StoredAt: now,
	}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}

func setBody(req *http.Request, body []byte) {
	req.ContentLength = int64(len(body))
	if len(body) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}

func withSource(resp *http.Response, source string) *http.Response {
	resp.Header.Set(HeaderSource, source)
	return resp
}

func jsonResponse(req *http.Request, status int, body []byte) *http.Response {
	e := &cache.Entry{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	}
	return e.Response(req)
}

func textResponse(req *http.Request, status int, body string) *http.Response {
	e := &cache.Entry{
		Status: status,
		Header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:   []byte(body),
	}
	return e.Response(req)
}
