package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/roach88/landsync/internal/gateway"
	"github.com/roach88/landsync/internal/intercept"
	"github.com/roach88/landsync/internal/notify"
	"github.com/roach88/landsync/internal/queue"
	"github.com/roach88/landsync/internal/store"
	"github.com/roach88/landsync/internal/testutil"
)

// gatewayBase is the address requests are sent to. The gateway is called
// in-process, so it never resolves.
const gatewayBase = "http://landsync.local"

var errOriginDown = errors.New("dial tcp origin.test:80: connect: network is unreachable")

// Harness runs one scenario.
type Harness struct {
	store   *store.Store
	queue   *queue.Queue
	gateway *gateway.Gateway
	origin  *fakeOrigin
	msgs    <-chan notify.Message
	result  *Result
}

// Run executes a scenario in a fresh in-memory database and returns the
// result. The error is non-nil only when the scenario could not be set up;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.GatewayConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewDeterministicClock()
	result := NewResult()

	q := queue.New(st, append(cfg.QueueOptions(),
		queue.WithIDGenerator(testutil.NewSequentialIDGenerator()),
		queue.WithClock(clock),
		queue.WithLogger(logger),
	)...)

	origin := newFakeOrigin(scenario.Routes, result)

	hub := notify.NewHub(notify.DefaultBuffer)
	msgs, cancel := hub.Subscribe()
	defer cancel()

	gw, err := gateway.New(cfg, q, st.Cache(),
		gateway.WithNetwork(origin),
		gateway.WithNow(clock.Now),
		gateway.WithLogger(logger),
		gateway.WithHub(hub),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	h := &Harness{
		store:   st,
		queue:   q,
		gateway: gw,
		origin:  origin,
		msgs:    msgs,
		result:  result,
	}

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if err := h.collectState(ctx); err != nil {
		return nil, err
	}
	if scenario.Expect != nil {
		for _, msg := range checkFinal(scenario.Expect, result) {
			result.AddError(msg)
		}
	}

	return result, nil
}

func (h *Harness) execute(ctx context.Context, index int, step Step) error {
	switch {
	case step.Network != "":
		h.origin.setDown(step.Network == "down")
		h.result.addEvent(TraceEvent{Type: EventNetwork, Network: step.Network})

	case step.OriginStatus != nil:
		h.origin.setStatus(*step.OriginStatus)
		h.result.addEvent(TraceEvent{Type: EventOriginStatus, Status: *step.OriginStatus})

	case step.Request != nil:
		h.request(index, step.Request)

	case step.Sync != nil:
		return h.sync(ctx, index, step.Sync)

	case step.Install:
		if err := h.gateway.Install(ctx); err != nil {
			return err
		}
		h.result.addEvent(TraceEvent{Type: EventInstall})
	}
	return nil
}

func (h *Harness) request(index int, rs *RequestStep) {
	var body io.Reader
	if rs.Body != "" {
		body = strings.NewReader(rs.Body)
	}
	req := httptest.NewRequest(rs.Method, gatewayBase+rs.Path, body)
	if rs.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if rs.Navigate {
		req.Header.Set("Accept", "text/html")
		req.Header.Set("Sec-Fetch-Mode", "navigate")
	}

	rec := httptest.NewRecorder()
	h.gateway.ServeHTTP(rec, req)
	resp := rec.Result()
	respBody := rec.Body.String()

	ev := TraceEvent{
		Type:     EventRequest,
		Method:   rs.Method,
		Path:     rs.Path,
		Status:   resp.StatusCode,
		Source:   resp.Header.Get(intercept.HeaderSource),
		QueuedID: resp.Header.Get(intercept.HeaderQueuedID),
		Body:     respBody,
	}
	h.result.addEvent(ev)

	if e := rs.Expect; e != nil {
		prefix := fmt.Sprintf("steps[%d] %s %s", index, rs.Method, rs.Path)
		if e.Status != 0 && e.Status != ev.Status {
			h.result.AddError(fmt.Sprintf("%s: expected status %d, got %d", prefix, e.Status, ev.Status))
		}
		if e.Source != "" && e.Source != ev.Source {
			h.result.AddError(fmt.Sprintf("%s: expected source %q, got %q", prefix, e.Source, ev.Source))
		}
		if e.Body != "" && strings.TrimSpace(e.Body) != strings.TrimSpace(ev.Body) {
			h.result.AddError(fmt.Sprintf("%s: expected body %q, got %q", prefix, e.Body, ev.Body))
		}
	}
}

func (h *Harness) sync(ctx context.Context, index int, ss *SyncStep) error {
	summary, err := h.gateway.Sync(ctx)
	if err != nil {
		return err
	}

	h.result.Synced += summary.Synced
	h.result.Failed += summary.Failed

	ev := TraceEvent{
		Type: EventSync,
		Summary: &SyncSummary{
			Total:   summary.Total,
			Synced:  summary.Synced,
			Failed:  summary.Failed,
			Skipped: summary.Skipped,
		},
		Messages: h.drainMessages(),
	}
	h.result.addEvent(ev)

	if e := ss.Expect; e != nil {
		prefix := fmt.Sprintf("steps[%d] sync", index)
		check := func(name string, want *int, got int) {
			if want != nil && *want != got {
				h.result.AddError(fmt.Sprintf("%s: expected %s %d, got %d", prefix, name, *want, got))
			}
		}
		check("synced", e.Synced, summary.Synced)
		check("failed", e.Failed, summary.Failed)
		check("skipped", e.Skipped, summary.Skipped)
	}
	return nil
}

// drainMessages returns the types of messages published since the last
// drain. Publishing is synchronous, so everything a replay emitted is
// already buffered.
func (h *Harness) drainMessages() []string {
	var types []string
	for {
		select {
		case m := <-h.msgs:
			types = append(types, string(m.Type))
		default:
			return types
		}
	}
}

func (h *Harness) collectState(ctx context.Context) error {
	writes, err := h.queue.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	for _, w := range writes {
		path := w.URL
		if u, err := url.Parse(w.URL); err == nil {
			path = u.RequestURI()
		}
		h.result.Pending = append(h.result.Pending, PendingState{
			ID:          w.ID,
			Method:      w.Method,
			Path:        path,
			BusinessKey: w.BusinessKey,
		})
	}
	return nil
}

// fakeOrigin answers from canned routes and records delivered writes.
type fakeOrigin struct {
	mu     sync.Mutex
	routes []Route
	down   bool
	status int
	result *Result
}

func newFakeOrigin(routes []Route, result *Result) *fakeOrigin {
	return &fakeOrigin{routes: routes, result: result}
}

func (o *fakeOrigin) setDown(down bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.down = down
}

func (o *fakeOrigin) setStatus(status int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

// RoundTrip implements http.RoundTripper.
func (o *fakeOrigin) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.down {
		return nil, errOriginDown
	}

	route, found := o.match(req)
	status := http.StatusNotFound
	contentType := "text/plain; charset=utf-8"
	respBody := "not found"
	if found {
		status = route.Status
		if status == 0 {
			status = http.StatusOK
		}
		contentType = route.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		respBody = route.Body
	}
	if o.status != 0 {
		status = o.status
	}

	if req.Method != http.MethodGet {
		o.result.addEvent(TraceEvent{
			Type:   EventDeliver,
			Method: req.Method,
			Path:   req.URL.RequestURI(),
			Status: status,
			Body:   string(body),
		})
		if status >= 200 && status <= 299 {
			o.result.Delivered = append(o.result.Delivered, string(body))
		}
	}

	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", contentType)
	rec.WriteHeader(status)
	io.WriteString(rec, respBody)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (o *fakeOrigin) match(req *http.Request) (Route, bool) {
	for _, r := range o.routes {
		if strings.EqualFold(r.Method, req.Method) && r.Path == req.URL.Path {
			return r, true
		}
	}
	return Route{}, false
}
