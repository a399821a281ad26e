// Package replay drains the pending-write queue against the origin.
//
// # Delivery
//
// A replay run lists every queued write once, oldest first, and sends each
// one with its original method, headers and body. Content-Type is always
// application/json. A 2xx response removes the write and emits an item-synced
// message; anything else leaves it queued and counts as a failure. The run
// never stops early.
//
// # At-least-once
//
// There is no in-flight state and no lock. Two runs that overlap may both
// send the same write, and a crash between delivery and removal leaves a
// delivered write queued. Both are accepted: the next successful write for
// the same business key supersedes any stale copy.
//
//	Run A lists [w1, w2]        Run B lists [w1, w2]
//	A sends w1 → 2xx → remove   B sends w1 → 2xx → remove (no-op)
//
// # Supersession during a run
//
// Before sending a write the run checks it is still queued. A write removed
// after the list was taken (by supersession or by a concurrent run) is
// skipped, not failed.
package replay
