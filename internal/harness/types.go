package harness

// Trace event types.
const (
	EventNetwork      = "network"
	EventOriginStatus = "origin_status"
	EventRequest      = "request"
	EventDeliver      = "deliver"
	EventSync         = "sync"
	EventInstall      = "install"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`

	// Network is "up" or "down" (network events).
	Network string `json:"network,omitempty"`

	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	Status int    `json:"status,omitempty"`

	// Source is the X-Landsync-Source of a gateway response.
	Source   string `json:"source,omitempty"`
	QueuedID string `json:"queued_id,omitempty"`

	// Body is the response body for requests and the delivered body for
	// deliver events.
	Body string `json:"body,omitempty"`

	Summary  *SyncSummary `json:"summary,omitempty"`
	Messages []string     `json:"messages,omitempty"`
}

// SyncSummary is the deterministic part of a replay summary.
type SyncSummary struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// PendingState describes one write left in the queue at the end of a run.
type PendingState struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	BusinessKey string `json:"business_key,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Pending is the queue at the end of the run, in FIFO order.
	Pending []PendingState `json:"pending"`

	// Synced and Failed are totals over every sync step.
	Synced int `json:"synced"`
	Failed int `json:"failed"`

	// Delivered lists the bodies of writes the origin received, in order.
	Delivered []string `json:"delivered"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Pending:   []PendingState{},
		Delivered: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
