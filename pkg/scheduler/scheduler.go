package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	serrors "github.com/strand-ui/strand/internal/errors"
	"github.com/strand-ui/strand/pkg/reactive"
	"github.com/strand-ui/strand/pkg/telemetry"
)

// ErrorHandler receives job failures and fatal conditions. source is the
// subsystem tag ("scheduler"). The flush continues after the handler
// returns; a failing job never aborts the batch.
type ErrorHandler func(source string, err error)

// Scheduler is a deduplicating, priority-ordered queue of pending jobs
// plus a post-flush callback queue, drained by a dedicated flush
// goroutine. At most one flush is pending at a time; the first enqueue
// after the previous flush settled schedules the next one.
type Scheduler struct {
	mu sync.Mutex

	// queue holds pending jobs; invalidated entries become nil placeholders
	// so indices stay stable for the in-progress scan.
	queue      []*Job
	flushIndex int

	// pendingPost accumulates post-flush callbacks for the current pass;
	// activePost is the slice being drained.
	pendingPost []*Job
	activePost  []*Job
	postIndex   int

	flushing     bool
	flushPending bool

	// runs counts invocations per job within one flush chain, for
	// runaway-recursion detection. Discarded when the chain settles.
	runs map[*Job]int

	// waiters are released when the current flush chain settles.
	waiters []chan struct{}

	wake   chan struct{}
	done   chan struct{}
	closed bool

	onError ErrorHandler
	metrics *telemetry.Metrics
	tracer  *telemetry.FlushTracer

	// effectJobs caches the stable Job per bound reactive effect.
	effectJobs sync.Map
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithErrorHandler replaces the default error handler. The default warns
// on job failures and panics on fatal conditions.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// WithMetrics records queue and flush activity on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithTracer opens a span per flush chain.
func WithTracer(t *telemetry.FlushTracer) Option {
	return func(s *Scheduler) {
		s.tracer = t
	}
}

// New creates a Scheduler and starts its flush goroutine.
// Callers must Close it when done.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		onError: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

func defaultErrorHandler(source string, err error) {
	if e, ok := err.(*serrors.Error); ok {
		if e.Fatal {
			panic(e)
		}
		serrors.Warn(e)
		return
	}
	serrors.Warn(serrors.New("E102").WithSource(source).Wrap(err))
}

// Close stops the flush goroutine and releases any settle waiters.
// Pending jobs are dropped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// Enqueue adds a job to the queue unless an equal pending entry already
// exists at or after the flush cursor (one past it for recurring jobs
// re-enqueued from within their own execution). The first enqueue after
// quiescence schedules a flush pass.
//
// Id-bearing jobs are inserted in priority position — never at or before
// the executing cursor — so a job enqueued while a flush is in progress
// still runs in id order relative to the remaining entries.
func (s *Scheduler) Enqueue(job *Job) {
	if job == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	start := s.flushIndex
	if s.flushing && job.recurring {
		start++
	}
	for i := start; i < len(s.queue); i++ {
		if s.queue[i] == job {
			s.mu.Unlock()
			return
		}
	}

	pos := len(s.queue)
	if job.hasID {
		insStart := s.flushIndex
		if s.flushing {
			insStart++
		}
		for i := insStart; i < len(s.queue); i++ {
			// Invalidated slots keep their position; never compare them.
			if s.queue[i] != nil && jobOrder(s.queue[i]) > job.id {
				pos = i
				break
			}
		}
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[pos+1:], s.queue[pos:])
	s.queue[pos] = job

	s.metrics.JobEnqueued()
	s.metrics.SetQueueDepth(len(s.queue))
	s.scheduleFlushLocked()
	s.mu.Unlock()
}

// EnqueuePostFlush registers a callback to run after the main queue is
// fully drained. Within one pass a callback runs at most once; a
// recurring callback may re-register itself from within its own execution
// and will run in the next pass.
func (s *Scheduler) EnqueuePostFlush(cb *Job) {
	if cb == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.activePost != nil {
		start := s.postIndex
		if cb.recurring {
			start++
		}
		for i := start; i < len(s.activePost); i++ {
			if s.activePost[i] == cb {
				s.mu.Unlock()
				return
			}
		}
	}
	s.pendingPost = append(s.pendingPost, cb)
	s.scheduleFlushLocked()
	s.mu.Unlock()
}

// Invalidate cancels a pending job. The entry becomes a nil placeholder
// rather than being removed, preserving index stability for an
// in-progress scan. The job currently executing cannot be invalidated.
func (s *Scheduler) Invalidate(job *Job) {
	if job == nil {
		return
	}
	s.mu.Lock()
	start := s.flushIndex
	if s.flushing {
		start++
	}
	for i := start; i < len(s.queue); i++ {
		if s.queue[i] == job {
			s.queue[i] = nil
			s.metrics.JobInvalidated()
			break
		}
	}
	s.mu.Unlock()
}

// Settle blocks until the pending flush chain (if any) fully settles,
// including chained passes and post-flush callbacks. Returns immediately
// when the scheduler is idle.
func (s *Scheduler) Settle(ctx context.Context) error {
	s.mu.Lock()
	if s.idleLocked() {
		s.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnSettled runs fn once the pending flush (if any) completes, or
// immediately on the calling goroutine when the scheduler is idle.
func (s *Scheduler) OnSettled(fn func()) {
	s.mu.Lock()
	if s.idleLocked() {
		s.mu.Unlock()
		fn()
		return
	}
	w := make(chan struct{})
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	go func() {
		<-w
		fn()
	}()
}

// idleLocked reports full quiescence. Callers hold s.mu.
func (s *Scheduler) idleLocked() bool {
	return !s.flushing && !s.flushPending &&
		len(s.queue) == 0 && len(s.pendingPost) == 0
}

// scheduleFlushLocked wakes the flush goroutine unless a pass is already
// pending or running. Callers hold s.mu.
func (s *Scheduler) scheduleFlushLocked() {
	if s.flushing || s.flushPending || s.closed {
		return
	}
	s.flushPending = true
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.flushJobs()
		}
	}
}

// flushJobs drains the queue to quiescence: sort, walk by cursor, run the
// post-flush callbacks, and repeat the whole pass while either queue
// gained entries. Recursion counts span the entire chain.
func (s *Scheduler) flushJobs() {
	began := time.Now()
	totalJobs := 0
	passes := 0

	s.mu.Lock()
	s.flushPending = false
	_, span := s.tracer.StartFlush(context.Background(), len(s.queue))
	if s.runs == nil {
		s.runs = make(map[*Job]int)
	}

	for {
		passes++
		s.flushing = true

		sort.SliceStable(s.queue, func(i, j int) bool {
			return jobOrder(s.queue[i]) < jobOrder(s.queue[j])
		})

		for s.flushIndex = 0; s.flushIndex < len(s.queue); s.flushIndex++ {
			job := s.queue[s.flushIndex]
			if job == nil {
				continue
			}
			s.runs[job]++
			if s.runs[job] > reactive.RecursionLimit {
				s.mu.Unlock()
				s.onError("scheduler", recursionError(job))
				s.mu.Lock()
				continue
			}
			s.mu.Unlock()
			s.runJob(job)
			totalJobs++
			s.mu.Lock()
			s.metrics.SetQueueDepth(len(s.queue) - s.flushIndex - 1)
		}

		s.queue = s.queue[:0]
		s.flushIndex = 0
		s.flushPostCbsLocked()
		s.flushing = false
		s.metrics.FlushPass()

		if len(s.queue) == 0 && len(s.pendingPost) == 0 {
			break
		}
	}

	s.runs = nil
	s.metrics.SetQueueDepth(0)
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	s.tracer.EndFlush(span, totalJobs, passes)
	s.metrics.FlushSettled(time.Since(began))
	for _, w := range waiters {
		close(w)
	}
}

// flushPostCbsLocked drains the post-flush callbacks registered during the
// pass, each at most once, in registration order. Callers hold s.mu.
func (s *Scheduler) flushPostCbsLocked() {
	if len(s.pendingPost) == 0 {
		return
	}

	seen := make(map[*Job]struct{}, len(s.pendingPost))
	var deduped []*Job
	for _, cb := range s.pendingPost {
		if _, dup := seen[cb]; !dup {
			seen[cb] = struct{}{}
			deduped = append(deduped, cb)
		}
	}
	s.pendingPost = nil

	if s.activePost != nil {
		s.activePost = append(s.activePost, deduped...)
		return
	}
	s.activePost = deduped

	for s.postIndex = 0; s.postIndex < len(s.activePost); s.postIndex++ {
		cb := s.activePost[s.postIndex]
		s.runs[cb]++
		if s.runs[cb] > reactive.RecursionLimit {
			s.mu.Unlock()
			s.onError("scheduler", recursionError(cb))
			s.mu.Lock()
			continue
		}
		s.mu.Unlock()
		s.runJob(cb)
		s.mu.Lock()
		s.metrics.PostFlushRun()
	}
	s.activePost = nil
	s.postIndex = 0
}

// runJob executes one job, isolating panics: a failure is routed to the
// error handler tagged "scheduler" and the flush moves on.
func (s *Scheduler) runJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.JobPanic()
			if e, ok := r.(*serrors.Error); ok {
				s.onError("scheduler", e)
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			s.onError("scheduler", serrors.New("E102").WithSource("scheduler").Wrap(err))
		}
	}()
	job.fn()
	s.metrics.JobRun()
}

func recursionError(job *Job) *serrors.Error {
	e := serrors.New("E101").WithSource("scheduler")
	if id, ok := job.ID(); ok {
		return e.WithDetailf("job %d exceeded %d runs in one flush chain", id, reactive.RecursionLimit)
	}
	return e.WithDetailf("anonymous job exceeded %d runs in one flush chain", reactive.RecursionLimit)
}
