// Package notify delivers replay progress to application surfaces.
//
// Two message types exist. SYNC_SUCCESS is sent once per write delivered
// during replay and carries the original request body. SYNC_COMPLETED is sent
// once at the end of a replay run that had work to do.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageType names a notification.
type MessageType string

const (
	TypeSyncSuccess   MessageType = "SYNC_SUCCESS"
	TypeSyncCompleted MessageType = "SYNC_COMPLETED"
)

// Message is one notification. Which fields are meaningful depends on Type.
type Message struct {
	Type MessageType
	// Data is the replayed request body (SYNC_SUCCESS only).
	Data []byte
	// SyncedCount and FailedCount summarize a run (SYNC_COMPLETED only).
	SyncedCount int
	FailedCount int
	Timestamp   time.Time
}

// MarshalJSON encodes the wire shape for each message type. Data is embedded
// as JSON when it is valid JSON and as a string otherwise.
func (m Message) MarshalJSON() ([]byte, error) {
	ts := m.Timestamp.UnixMilli()
	switch m.Type {
	case TypeSyncSuccess:
		var data any = string(m.Data)
		if json.Valid(m.Data) {
			data = json.RawMessage(m.Data)
		}
		return json.Marshal(struct {
			Type      MessageType `json:"type"`
			Data      any         `json:"data"`
			Timestamp int64       `json:"timestamp"`
		}{m.Type, data, ts})
	case TypeSyncCompleted:
		return json.Marshal(struct {
			Type        MessageType `json:"type"`
			SyncedCount int         `json:"syncedCount"`
			FailedCount int         `json:"failedCount"`
			Timestamp   int64       `json:"timestamp"`
		}{m.Type, m.SyncedCount, m.FailedCount, ts})
	default:
		return json.Marshal(struct {
			Type      MessageType `json:"type"`
			Timestamp int64       `json:"timestamp"`
		}{m.Type, ts})
	}
}

// Emitter receives replay progress.
type Emitter interface {
	ItemSynced(body []byte, at time.Time)
	BatchCompleted(synced, failed int, at time.Time)
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) ItemSynced([]byte, time.Time)        {}
func (discard) BatchCompleted(int, int, time.Time) {}

// DefaultBuffer is the per-subscriber buffer used by NewHub(0).
const DefaultBuffer = 64

// Hub fans messages out to every current subscriber. A subscriber whose
// buffer is full misses the message; publishing never blocks.
//
// Thread-safety: all methods are safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Message
	nextID int
	buffer int
	logger *slog.Logger
}

var _ Emitter = (*Hub)(nil)

// NewHub creates a Hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[int]chan Message),
		buffer: buffer,
		logger: slog.Default(),
	}
}

// Subscribe registers a subscriber. The returned cancel function removes it
// and closes the channel; calling cancel more than once is safe.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Message, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends m to every subscriber.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- m:
		default:
			h.logger.Warn("dropped notification for slow subscriber", "subscriber", id, "type", m.Type)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ItemSynced publishes a SYNC_SUCCESS message.
func (h *Hub) ItemSynced(body []byte, at time.Time) {
	h.Publish(Message{
		Type:      TypeSyncSuccess,
		Data:      append([]byte(nil), body...),
		Timestamp: at,
	})
}

// BatchCompleted publishes a SYNC_COMPLETED message.
func (h *Hub) BatchCompleted(synced, failed int, at time.Time) {
	h.Publish(Message{
		Type:        TypeSyncCompleted,
		SyncedCount: synced,
		FailedCount: failed,
		Timestamp:   at,
	})
}
