package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.UnixMilli(1705309200000).UTC()

func TestMessage_MarshalSyncSuccess(t *testing.T) {
	m := Message{Type: TypeSyncSuccess, Data: []byte(`{"parcel_cod":"A01"}`), Timestamp: ts}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SYNC_SUCCESS","data":{"parcel_cod":"A01"},"timestamp":1705309200000}`, string(b))
}

func TestMessage_MarshalSyncSuccessNonJSONBody(t *testing.T) {
	m := Message{Type: TypeSyncSuccess, Data: []byte("name=A01"), Timestamp: ts}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SYNC_SUCCESS","data":"name=A01","timestamp":1705309200000}`, string(b))
}

func TestMessage_MarshalSyncCompleted(t *testing.T) {
	m := Message{Type: TypeSyncCompleted, SyncedCount: 1, FailedCount: 1, Timestamp: ts}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SYNC_COMPLETED","syncedCount":1,"failedCount":1,"timestamp":1705309200000}`, string(b))
}

func TestHub_FanOut(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	defer cancelA()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.ItemSynced([]byte(`{"parcel_cod":"A01"}`), ts)
	h.BatchCompleted(1, 0, ts)

	for _, ch := range []<-chan Message{a, b} {
		first := <-ch
		assert.Equal(t, TypeSyncSuccess, first.Type)
		assert.Equal(t, `{"parcel_cod":"A01"}`, string(first.Data))

		second := <-ch
		assert.Equal(t, TypeSyncCompleted, second.Type)
		assert.Equal(t, 1, second.SyncedCount)
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.BatchCompleted(1, 0, ts)
	h.BatchCompleted(2, 0, ts) // buffer full, dropped

	m := <-ch
	assert.Equal(t, 1, m.SyncedCount)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected message %+v", extra)
	default:
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	h := NewHub(0)
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	// Publishing with no subscribers is fine
	h.BatchCompleted(0, 0, ts)
}

func TestHub_ServeHTTP(t *testing.T) {
	h := NewHub(4)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	h.BatchCompleted(2, 1, ts)

	reader := bufio.NewReader(resp.Body)
	event, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: SYNC_COMPLETED\n", event)

	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data: "))
	assert.JSONEq(t,
		`{"type":"SYNC_COMPLETED","syncedCount":2,"failedCount":1,"timestamp":1705309200000}`,
		strings.TrimSpace(strings.TrimPrefix(data, "data: ")))
}
