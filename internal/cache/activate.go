package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Activate deletes every partition whose name is not in keep and returns
// the dropped names. Partitions in keep are never touched.
func Activate(ctx context.Context, s Store, keep ...string) ([]string, error) {
	names, err := s.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("activate: list partitions: %w", err)
	}

	current := make(map[string]bool, len(keep))
	for _, k := range keep {
		current[k] = true
	}

	var dropped []string
	for _, name := range names {
		if current[name] {
			continue
		}
		if err := s.DropPartition(ctx, name); err != nil {
			return dropped, fmt.Errorf("activate: drop %q: %w", name, err)
		}
		slog.Info("dropped stale cache partition", "partition", name)
		dropped = append(dropped, name)
	}
	return dropped, nil
}

// Seed stores entry under key unless an entry already exists, so a real
// response cached earlier is never replaced by install-time defaults.
// It reports whether the entry was written.
func Seed(ctx context.Context, s Store, partition, key string, entry *Entry) (bool, error) {
	_, ok, err := s.Get(ctx, partition, key)
	if err != nil {
		return false, fmt.Errorf("seed %s: %w", key, err)
	}
	if ok {
		return false, nil
	}
	if err := s.Put(ctx, partition, key, entry); err != nil {
		return false, fmt.Errorf("seed %s: %w", key, err)
	}
	return true, nil
}

// Precache fetches each path from origin and stores successful responses in
// partition. Individual failures are logged and skipped; the number of
// stored entries is returned.
func Precache(ctx context.Context, s Store, partition string, network http.RoundTripper, origin *url.URL, paths []string) int {
	stored := 0
	for _, p := range paths {
		ref, err := url.Parse(p)
		if err != nil {
			slog.Warn("skipping precache path", "path", p, "error", err)
			continue
		}
		target := origin.ResolveReference(ref)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			slog.Warn("skipping precache path", "path", p, "error", err)
			continue
		}
		resp, err := network.RoundTrip(req)
		if err != nil {
			slog.Warn("precache fetch failed", "url", target.String(), "error", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			slog.Warn("precache read failed", "url", target.String(), "error", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			slog.Warn("precache skipped non-success response", "url", target.String(), "status", resp.StatusCode)
			continue
		}
		if err := s.Put(ctx, partition, Key(target), NewEntry(resp, body, time.Now())); err != nil {
			slog.Warn("precache store failed", "url", target.String(), "error", err)
			continue
		}
		stored++
	}
	return stored
}
