package scheduler

import "github.com/strand-ui/strand/pkg/reactive"

// BindEffect returns the stable Job that re-runs e, creating it on first
// use. The job's id is the effect's id, so a queue of bound effects
// flushes in effect creation order; an allow-recurse effect binds to a
// recurring job so it may re-enqueue itself.
func (s *Scheduler) BindEffect(e *reactive.Effect) *Job {
	if v, ok := s.effectJobs.Load(e); ok {
		return v.(*Job)
	}
	opts := []JobOption{WithID(int64(e.ID()))}
	if e.AllowsRecurse() {
		opts = append(opts, Recurring())
	}
	job := NewJob(e.Run, opts...)
	actual, _ := s.effectJobs.LoadOrStore(e, job)
	return actual.(*Job)
}

// EnqueueEffect enqueues the effect's bound job. Its signature matches
// reactive.WithDeferredInvoke, so wiring an effect into the scheduler is:
//
//	e := reactive.NewEffect(render, reactive.WithDeferredInvoke(s.EnqueueEffect))
func (s *Scheduler) EnqueueEffect(e *reactive.Effect) {
	s.Enqueue(s.BindEffect(e))
}
