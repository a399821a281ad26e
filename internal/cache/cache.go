// Package cache holds response snapshots in named, versioned partitions.
//
// Two partitions are in play at any time: one for static assets (the app
// shell) and one for API data. Partition names carry a version tag; Activate
// drops every partition that is not one of the current names.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Default partition names. Bumping the version suffix invalidates every
// snapshot stored under the previous name on the next Activate.
const (
	DefaultStaticPartition = "tdm-land-management-v1.1.0"
	DefaultDataPartition   = "tdm-data-cache-v1.1.0"
)

// Store defines the contract for partitioned response storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for key in partition. ok is false on a miss.
	Get(ctx context.Context, partition, key string) (entry *Entry, ok bool, err error)
	// Put stores entry, replacing any previous entry for the same key.
	Put(ctx context.Context, partition, key string, entry *Entry) error
	// Partitions lists partitions holding at least one entry.
	Partitions(ctx context.Context) ([]string, error)
	// DropPartition deletes every entry in the partition.
	DropPartition(ctx context.Context, partition string) error
	Close() error
}

// Pinner is implemented by stores that evict. A pinned key is never chosen
// for eviction; Put still replaces it and DropPartition still removes it.
type Pinner interface {
	Pin(partition, key string)
}

// Pin exempts key in partition from eviction when s supports it.
func Pin(s Store, partition, key string) {
	if p, ok := s.(Pinner); ok {
		p.Pin(partition, key)
	}
}

// Entry is a stored response snapshot.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Size returns the estimated memory footprint in bytes.
func (e *Entry) Size() int64 {
	// ~30 bytes of overhead per header key/value pair
	return int64(len(e.Body)) + int64(len(e.Header)*30)
}

// NewEntry snapshots a response whose body has already been read.
// Hop-by-hop headers are dropped.
func NewEntry(resp *http.Response, body []byte, now time.Time) *Entry {
	return &Entry{
		Status:   resp.StatusCode,
		Header:   StripHopByHop(resp.Header),
		Body:     append([]byte(nil), body...),
		StoredAt: now,
	}
}

// Response rebuilds an *http.Response from the snapshot. Each call returns
// an independent body reader.
func (e *Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Key is the request identity used for both partitions: path plus the raw
// query string when present.
func Key(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}
