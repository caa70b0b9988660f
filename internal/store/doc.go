// Package store keeps a SQLite log of batch compilations.
//
// Each batch run writes one session row and one outcome row per query.
// Outcomes record the fingerprint and output frame of a successful
// compilation, or the diagnostics of a failed one, so later runs can be
// compared without recompiling.
//
// # Ordering
//
// Rows are ordered by seq, the logical clock of the batch engine, never by
// wall time. Every read uses ORDER BY seq ASC so two reads of the same
// session return identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
