// Package engine compiles batches of queries concurrently.
//
// A batch is a list of named jobs. The engine hands jobs to a bounded pool
// of workers, each running the full compile pipeline; compilation state is
// never shared between jobs, only the read-only catalog and std library.
//
// Ordering:
//
// Every job gets its seq number from the Clock before any worker starts, in
// submission order. Outcomes are returned and logged in that order no
// matter which worker finishes first, so a batch over the same inputs
// always produces the same log.
//
// Logging:
//
// When a store is configured, the session and its outcomes are written
// by the calling goroutine after the pool drains. Workers never touch the
// database, so SQLite sees a single writer.
package engine
