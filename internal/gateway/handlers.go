package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/roach88/landsync/internal/intercept"
)

// errorBody is the JSON body of every gateway-generated error.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := g.status(r.Context())
	if err != nil {
		g.logger.Error("status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (g *Gateway) handlePending(w http.ResponseWriter, r *http.Request) {
	writes, err := g.queue.ListAll(r.Context())
	if err != nil {
		g.logger.Error("list pending failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	views := make([]pendingView, 0, len(writes))
	for _, pw := range writes {
		views = append(views, newPendingView(pw))
	}
	writeJSON(w, http.StatusOK, views)
}

func (g *Gateway) handleSync(w http.ResponseWriter, r *http.Request) {
	summary, err := g.Sync(r.Context())
	if err != nil {
		g.logger.Error("manual sync failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// proxyError answers requests the interceptor could not serve from network,
// cache or queue.
func (g *Gateway) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case intercept.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case intercept.IsPersistence(err):
		status = http.StatusInternalServerError
	case intercept.IsCacheMiss(err):
		status = http.StatusServiceUnavailable
	}

	body := errorBody{Error: err.Error()}
	var de *intercept.DeliveryError
	if errors.As(err, &de) {
		body.Kind = string(de.Kind)
	}

	g.logger.Warn("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach Flush on the event stream.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Flush forwards to the underlying writer when it supports flushing.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// logRequests logs one line per request and turns handler panics into 500s.
func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("handler panic", "method", r.Method, "path", r.URL.Path,
					"panic", p, "stack", string(debug.Stack()))
				if rec.status == 0 {
					writeJSON(rec, http.StatusInternalServerError, errorBody{Error: "internal error"})
				}
			}
			logger.Debug("request", "method", r.Method, "path", r.URL.Path,
				"status", rec.status, "duration", time.Since(start))
		}()

		next.ServeHTTP(rec, r)
	})
}
