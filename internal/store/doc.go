// Package store provides SQLite-backed run history.
//
// Every completed run is recorded once, with its stats, its full trace
// rendered as YAML and one row per failure so failures can be listed
// without decoding the trace.
//
// # Tables
//
//   - runs: one row per run, keyed by a UUIDv7 identifier
//   - failures: one row per failure-detail entry, keyed by (run_id, ordinal)
//
// # Ordering
//
// Listings are newest first (started_at DESC, id DESC). Failures keep
// execution order (ordinal ASC). Because UUIDv7 identifiers sort by
// creation time, the id tiebreak is stable across runs started in the
// same nanosecond.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Failures cannot outlive their run
//
// # Schema Versions
//
// PRAGMA user_version tracks migrations applied on top of schema.sql.
package store
