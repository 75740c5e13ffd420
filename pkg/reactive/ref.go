package reactive

import "sync"

// Ref is a single reactive value cell built on the public Track/Trigger
// primitives: reads track (self, KeyValue), writes that change the value
// trigger it. It is the leaf source most effects ultimately depend on.
type Ref[T any] struct {
	target TargetID

	mu    sync.RWMutex
	value T

	// equal decides whether a write changed the value. Defaults to == for
	// comparable types and reflect.DeepEqual otherwise.
	equal func(T, T) bool
}

// NewRef creates a reactive cell holding initial.
func NewRef[T any](initial T) *Ref[T] {
	return &Ref[T]{
		target: RegisterTarget(TargetObject),
		value:  initial,
	}
}

// WithEquals configures a custom equality function and returns the ref.
func (r *Ref[T]) WithEquals(fn func(T, T) bool) *Ref[T] {
	r.equal = fn
	return r
}

// Value returns the current value and subscribes the enclosing effect.
func (r *Ref[T]) Value() T {
	Track(r.target, TrackGet, KeyValue)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Peek returns the current value without subscribing.
func (r *Ref[T]) Peek() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// SetValue stores v and triggers subscribers when the value changed under
// the configured equality.
func (r *Ref[T]) SetValue(v T) {
	r.mu.Lock()
	old := r.value
	changed := !r.equals(old, v)
	if changed {
		r.value = v
	}
	r.mu.Unlock()

	if changed {
		Trigger(r.target, TriggerSet, KeyValue, v, old)
	}
}

// Update applies fn to the current value and stores the result, triggering
// subscribers when the result differs.
func (r *Ref[T]) Update(fn func(T) T) {
	r.mu.Lock()
	old := r.value
	v := fn(old)
	changed := !r.equals(old, v)
	if changed {
		r.value = v
	}
	r.mu.Unlock()

	if changed {
		Trigger(r.target, TriggerSet, KeyValue, v, old)
	}
}

// Release removes the ref's dependency state from the registry. The ref
// itself stays readable; it just no longer participates in tracking.
func (r *Ref[T]) Release() {
	ReleaseTarget(r.target)
}

func (r *Ref[T]) equals(a, b T) bool {
	if r.equal != nil {
		return r.equal(a, b)
	}
	return defaultEquals(a, b)
}
