package reactive

import (
	"sync"

	serrors "github.com/strand-ui/strand/internal/errors"
)

// TrackOp is the kind of observable read reported to Track.
type TrackOp uint8

const (
	// TrackGet is a plain property read.
	TrackGet TrackOp = iota

	// TrackHas is a key-presence check.
	TrackHas

	// TrackIterate is an iteration over keys or entries.
	TrackIterate
)

// String returns a human-readable name for the read kind.
func (op TrackOp) String() string {
	switch op {
	case TrackGet:
		return "get"
	case TrackHas:
		return "has"
	case TrackIterate:
		return "iterate"
	default:
		return "unknown"
	}
}

// TriggerOp is the kind of observable mutation reported to Trigger.
type TriggerOp uint8

const (
	// TriggerSet overwrites an existing key.
	TriggerSet TriggerOp = iota

	// TriggerAdd introduces a new key.
	TriggerAdd

	// TriggerDelete removes an existing key.
	TriggerDelete

	// TriggerClear removes every key of the target at once.
	TriggerClear
)

// String returns a human-readable name for the mutation kind.
func (op TriggerOp) String() string {
	switch op {
	case TriggerSet:
		return "set"
	case TriggerAdd:
		return "add"
	case TriggerDelete:
		return "delete"
	case TriggerClear:
		return "clear"
	default:
		return "unknown"
	}
}

// TrackEvent describes one dependency subscription for the OnTrack hook.
type TrackEvent struct {
	Effect *Effect
	Target TargetID
	Key    Key
	Op     TrackOp
}

// TriggerEvent describes one scheduled invalidation for the OnTrigger hook.
type TriggerEvent struct {
	Effect   *Effect
	Target   TargetID
	Key      Key
	Op       TriggerOp
	NewValue any
	OldValue any
}

// InvokeMode says how a triggered effect is invoked.
type InvokeMode uint8

const (
	// InvokeDirect runs the effect synchronously inside the Trigger call.
	InvokeDirect InvokeMode = iota

	// InvokeDeferred hands the effect to its handler instead of running
	// it. The handler decides whether and when the effect actually runs;
	// computed values and the scheduler both plug in here.
	InvokeDeferred
)

// Effect is a re-runnable computation. While it runs, every tracked read
// subscribes it to the (target, key) pair that was read; its previous
// subscriptions are dropped first, so the graph always reflects the
// current run's read set, never a historical one.
type Effect struct {
	id uint64

	// fn is the computation.
	fn func()

	// deps are the dependency sets this effect currently belongs to
	// (reverse edges), rebuilt on every run.
	deps   []depSet
	depsMu sync.Mutex

	mode         InvokeMode
	deferred     func(*Effect)
	lazy         bool
	allowRecurse bool

	onTrack   func(TrackEvent)
	onTrigger func(TriggerEvent)
	onStop    func()

	// active is cleared permanently by Stop.
	active bool
}

// EffectOption configures an Effect at creation.
type EffectOption interface {
	isEffectOption()
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) isEffectOption()       {}
func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// Lazy prevents the initial run at creation. The first invocation happens
// when the caller (or a trigger) runs the effect.
func Lazy() EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.lazy = true
	})
}

// WithDeferredInvoke switches the effect to InvokeDeferred: triggers call
// handler with the effect instead of running it.
func WithDeferredInvoke(handler func(*Effect)) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.mode = InvokeDeferred
		e.deferred = handler
	})
}

// AllowRecurse lets the effect trigger its own re-run. Without it,
// re-entrant invocations are skipped, which is what keeps accidental
// dependency cycles from spinning. Deliberately recurring computations
// (watch-style callbacks) opt in with this.
func AllowRecurse() EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.allowRecurse = true
	})
}

// OnTrack installs a diagnostics hook fired on every new subscription.
func OnTrack(fn func(TrackEvent)) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.onTrack = fn
	})
}

// OnTrigger installs a diagnostics hook fired when a write schedules the
// effect, before it is invoked.
func OnTrigger(fn func(TriggerEvent)) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.onTrigger = fn
	})
}

// OnStop installs a hook fired once when the effect is stopped.
func OnStop(fn func()) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.onStop = fn
	})
}

// NewEffect creates an effect over fn. Unless Lazy is given, the effect
// runs once immediately, establishing its initial subscriptions.
func NewEffect(fn func(), opts ...EffectOption) *Effect {
	e := &Effect{
		id:     nextID(),
		fn:     fn,
		active: true,
	}
	for _, opt := range opts {
		opt.applyEffect(e)
	}
	if !e.lazy {
		e.Run()
	}
	return e
}

// ID returns the effect's unique, monotonically increasing id.
func (e *Effect) ID() uint64 {
	return e.id
}

// IsActive reports whether the effect has not been stopped.
func (e *Effect) IsActive() bool {
	return e.active
}

// Mode returns the effect's invocation mode.
func (e *Effect) Mode() InvokeMode {
	return e.mode
}

// AllowsRecurse reports whether the effect opted into self-triggering.
func (e *Effect) AllowsRecurse() bool {
	return e.allowRecurse
}

// Run invokes the effect.
//
// A stopped direct effect still runs its function, untracked, so read-only
// callers can re-evaluate it without registering dependencies; a stopped
// deferred effect is a no-op. A re-entrant invocation (the effect reached
// itself through its own dependency graph) is skipped unless AllowRecurse
// was set.
func (e *Effect) Run() {
	if !e.active {
		if e.mode == InvokeDeferred {
			return
		}
		Untracked(e.fn)
		return
	}

	tc := currentContext()
	if tc.onStack(e) && !e.allowRecurse {
		return
	}

	// Drop the previous run's subscriptions; the reads below rebuild them.
	e.clearDeps()

	tc.effectStack = append(tc.effectStack, e)
	tc.pushTracking(true)
	defer func() {
		tc.popTracking()
		tc.effectStack = tc.effectStack[:len(tc.effectStack)-1]
	}()

	e.fn()
}

// Stop removes the effect from every dependency set it belongs to, fires
// its OnStop hook, and marks it permanently inactive. Idempotent.
//
// Stop does not retroactively cancel invocations already handed to a
// deferred handler; callers that need guaranteed suppression invalidate
// the corresponding job as well.
func (e *Effect) Stop() {
	if !e.active {
		if Debug {
			serrors.Warnf("E004", "effect %d", e.id)
		}
		return
	}
	e.clearDeps()
	if e.onStop != nil {
		e.onStop()
	}
	e.active = false
}

// addDep records membership in a dependency set (a reverse edge).
func (e *Effect) addDep(set depSet) {
	e.depsMu.Lock()
	e.deps = append(e.deps, set)
	e.depsMu.Unlock()
}

// clearDeps removes the effect from all of its dependency sets.
func (e *Effect) clearDeps() {
	e.depsMu.Lock()
	for _, set := range e.deps {
		set.Remove(e)
	}
	e.deps = e.deps[:0]
	e.depsMu.Unlock()
}

// unionDepsInto subscribes outer to every dependency set e belongs to.
// Used by computed values to make an enclosing effect transitively
// dependent on the computed's own inputs.
func (e *Effect) unionDepsInto(outer *Effect) {
	if outer == nil || !outer.active || outer == e {
		return
	}
	e.depsMu.Lock()
	sets := make([]depSet, len(e.deps))
	copy(sets, e.deps)
	e.depsMu.Unlock()

	for _, set := range sets {
		if set.Add(outer) {
			outer.addDep(set)
		}
	}
}
