// Package store provides SQLite-backed storage for finished check runs.
//
// A run is one checker pass of a sequence over a message source. The store
// keeps:
//   - runs: the result tree as canonical JSON plus its digest
//   - occurrences: one row per occurrence for status queries
//   - run_logs: the diagnostic log lines in order
//
// Matcher state is never stored; only exported results are.
//
// # Ordering
//
// Runs get a logical seq on insert. All list queries order by
// seq ASC, id ASC COLLATE BINARY so output is identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
