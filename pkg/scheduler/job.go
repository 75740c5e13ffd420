package scheduler

import "math"

// Job is one pending unit of work in the queue. Jobs are compared by
// pointer identity for dedup and invalidation, so callers must enqueue
// the same *Job to coalesce repeated triggers of the same computation.
type Job struct {
	fn func()

	// id orders the job within a flush pass. Jobs without an id sort
	// after every id-bearing job, preserving insertion order among
	// themselves.
	id    int64
	hasID bool

	// recurring marks a callback that may legitimately re-enqueue itself
	// from within its own execution (a watch-style callback). The dedup
	// window for such jobs starts one slot past the flush cursor, so the
	// re-enqueue lands in the next pass instead of being treated as a
	// duplicate of the executing instance.
	recurring bool
}

// JobOption configures a Job at creation.
type JobOption func(*Job)

// WithID assigns the priority id.
func WithID(id int64) JobOption {
	return func(j *Job) {
		j.id = id
		j.hasID = true
	}
}

// Recurring marks the job as a deliberately self-re-enqueueing callback.
func Recurring() JobOption {
	return func(j *Job) {
		j.recurring = true
	}
}

// NewJob creates a job over fn.
func NewJob(fn func(), opts ...JobOption) *Job {
	j := &Job{fn: fn}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ID returns the priority id and whether one was assigned.
func (j *Job) ID() (int64, bool) {
	return j.id, j.hasID
}

// IsRecurring reports whether the job was marked Recurring.
func (j *Job) IsRecurring() bool {
	return j.recurring
}

// jobOrder is the sort key: assigned ids ascend, everything else
// (anonymous jobs and invalidated nil slots) sorts last.
func jobOrder(j *Job) int64 {
	if j == nil || !j.hasID {
		return math.MaxInt64
	}
	return j.id
}
