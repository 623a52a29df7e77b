// Package persistence maps domain.ValidationAttempt records onto a relational
// table and exposes them through a unit-of-work Context.
//
// A Provider owns the process-wide connection pool for one configured
// storage engine. Each unit of work (typically one HTTP request) takes a
// Context from the Provider. The Context acquires a single connection on its
// first store operation, queues inserts, updates and removals in memory, and
// applies them as one transaction on SaveChanges. Close releases the
// connection; every later call fails with domain.ErrDisposed.
//
// A Context is not safe for concurrent use. Overlapping calls from two
// goroutines are rejected with domain.ErrConcurrentUse.
package persistence
