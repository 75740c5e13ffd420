package reactive

import (
	"sync"

	serrors "github.com/strand-ui/strand/internal/errors"
)

// Computed is a cached, lazily evaluated reactive value.
//
// The getter never runs eagerly: creation leaves the value dirty, and the
// first Value call computes it. Writes to the getter's inputs do not
// recompute anything either — they only flip the dirty flag and invalidate
// this computed's own subscribers (push-based invalidation); the next
// Value call recomputes (pull-based evaluation).
type Computed[T any] struct {
	// effect wraps the getter: lazy, with an invalidation handler instead
	// of direct re-runs.
	effect *Effect

	// target is the computed's own registered identity; subscribers of the
	// computed track (target, KeyValue).
	target TargetID

	mu    sync.Mutex
	value T
	dirty bool

	// setter is nil for the read-only variant.
	setter func(T)
}

// NewComputed creates a read-only computed value over getter.
func NewComputed[T any](getter func() T) *Computed[T] {
	return newComputed(getter, nil)
}

// NewWritableComputed creates a computed value whose writes are delegated
// to setter. The setter typically writes through to the getter's inputs.
func NewWritableComputed[T any](getter func() T, setter func(T)) *Computed[T] {
	return newComputed(getter, setter)
}

func newComputed[T any](getter func() T, setter func(T)) *Computed[T] {
	c := &Computed[T]{
		target: RegisterTarget(TargetObject),
		dirty:  true,
		setter: setter,
	}
	c.effect = NewEffect(func() {
		v := getter()
		c.mu.Lock()
		c.value = v
		c.mu.Unlock()
	}, Lazy(), WithDeferredInvoke(func(*Effect) {
		c.invalidate()
	}))
	return c
}

// invalidate marks the cached value stale and pushes the invalidation to
// this computed's own subscribers. Only the clean-to-dirty transition
// propagates; once dirty, further input writes are already covered.
func (c *Computed[T]) invalidate() {
	c.mu.Lock()
	wasDirty := c.dirty
	c.dirty = true
	c.mu.Unlock()

	if !wasDirty {
		Trigger(c.target, TriggerSet, KeyValue, nil, nil)
	}
}

// Value returns the current value, recomputing it if stale, and registers
// a read against the computed for the enclosing effect.
//
// When a recomputation happens inside an enclosing effect's run, the
// enclosing effect is also subscribed to every dependency the getter read,
// so invalidation of a leaf input reaches effects any number of computed
// layers removed.
func (c *Computed[T]) Value() T {
	c.mu.Lock()
	dirty := c.dirty
	c.mu.Unlock()

	if dirty {
		c.effect.Run()
		c.mu.Lock()
		c.dirty = false
		c.mu.Unlock()
		if tc := currentContext(); tc.shouldTrack {
			c.effect.unionDepsInto(tc.activeEffect())
		}
	}

	Track(c.target, TrackGet, KeyValue)

	c.mu.Lock()
	v := c.value
	c.mu.Unlock()
	return v
}

// Peek returns the current value without subscribing the enclosing effect.
// It still recomputes when stale.
func (c *Computed[T]) Peek() T {
	var v T
	Untracked(func() {
		v = c.Value()
	})
	return v
}

// SetValue writes through the configured setter. On the read-only variant
// this reports a misuse diagnostic and performs no mutation.
func (c *Computed[T]) SetValue(v T) {
	if c.setter == nil {
		serrors.Warn(serrors.New("E001"))
		return
	}
	c.setter(v)
}

// Dirty reports whether the next Value call will recompute.
func (c *Computed[T]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Effect exposes the wrapped effect, whose id orders this computed
// relative to other computations in the scheduler.
func (c *Computed[T]) Effect() *Effect {
	return c.effect
}

// Stop tears the computed down: its effect unsubscribes from all inputs
// and its own subscribers can no longer be reached through it.
func (c *Computed[T]) Stop() {
	c.effect.Stop()
	ReleaseTarget(c.target)
}
