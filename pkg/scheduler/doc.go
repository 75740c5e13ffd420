// Package scheduler batches reactive re-runs: triggered effects are
// enqueued as jobs, deduplicated, and drained in ascending priority-id
// order by a single flush goroutine. Many triggers within one turn
// coalesce into one flush pass; post-flush callbacks run after the main
// queue drains; Settle and OnSettled observe quiescence.
//
// Job ids follow effect creation order, so a tree of computations created
// in traversal order flushes parent before child.
package scheduler
