package store

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/landsync/internal/record"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestWrite creates a pending write with minimal required fields.
func createTestWrite(id, businessKey string) record.PendingWrite {
	return record.PendingWrite{
		ID:          id,
		URL:         "http://origin.test/api/parcel",
		Method:      http.MethodPost,
		Header:      http.Header{"Content-Type": []string{"application/json"}},
		Body:        []byte(`{"parcel_cod":"` + businessKey + `"}`),
		BusinessKey: businessKey,
		CreatedAt:   time.UnixMilli(1700000000000).UTC(),
	}
}
