// Package harness runs offline scenarios against an in-process gateway.
//
// A scenario describes a fake origin, a sequence of steps that flip
// connectivity, send requests through the gateway and run replays, and the
// expected final state. Every step is recorded in a trace that can be compared
// against a golden file.
//
// # Scenario Format
//
//	name: offline_write_then_sync
//	description: "A write made offline is delivered by the next replay"
//	config:
//	  business_key_field: parcel_cod
//	routes:
//	  - method: POST
//	    path: /api/land_parcel
//	    body: '{"success":true}'
//	steps:
//	  - network: down
//	  - request:
//	      method: POST
//	      path: /api/land_parcel
//	      body: '{"parcel_cod":"A01"}'
//	      expect: { status: 200, source: queued }
//	  - network: up
//	  - sync:
//	      expect: { synced: 1, failed: 0 }
//	expect:
//	  pending: 0
//	  delivered: ['{"parcel_cod":"A01"}']
//
// # Steps
//
//   - network: up | down. Down makes every origin request fail at the
//     transport.
//   - origin_status: N. The origin answers every request with status N;
//     0 restores the routes.
//   - request: one request through the gateway. navigate marks it as a
//     top-level page load.
//   - sync: one replay pass.
//   - install: cache activation, seeding and precache.
//
// # Deterministic Runs
//
// Each scenario gets a fresh in-memory SQLite store, sequential write IDs
// (off_1, off_2, ...) and a deterministic clock, so traces are identical
// across runs.
package harness
