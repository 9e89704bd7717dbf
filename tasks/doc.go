// Package tasks runs background work on a bounded worker pool.
//
// A Queue deduplicates tasks by key: while a task for a key is pending or
// running, further submissions for that key are dropped. Every task is
// retried with exponential backoff before its failure is logged.
package tasks
