// Package store provides SQLite-backed durable storage for landsync.
//
// Two tables live in one database file:
//   - pending_writes: writes that could not reach the origin, in arrival order
//   - cache_entries: response snapshots grouped by versioned partition
//
// # Ordering
//
// Pending writes are ordered by seq, an AUTOINCREMENT rowid assigned at
// insert. Timestamps are never used for ordering, so two writes queued in the
// same millisecond still replay in the order they were queued.
//
// # Idempotency
//
//   - Inserting a pending write whose id already exists is a no-op that
//     returns the existing seq
//   - Deleting an id or business key that is absent is not an error
//   - Cache writes are upserts; the newest snapshot replaces the old one
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
