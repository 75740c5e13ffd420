package reactive

import (
	"sync"

	"github.com/petermattis/goid"

	serrors "github.com/strand-ui/strand/internal/errors"
)

// trackingContext holds the reactive state for one goroutine: the stack of
// currently running effects, the pausable tracking switch, and the state of
// an in-progress trigger cascade.
//
// Keeping the context per goroutine lets independent goroutines host their
// own computations without seeing each other's active effect. The shared
// structures (the dependency registry and the dependency sets themselves)
// are separately synchronized.
type trackingContext struct {
	// effectStack holds the effects currently running, innermost last.
	effectStack []*Effect

	// shouldTrack is the current tracking switch.
	shouldTrack bool

	// trackStack saves prior switch states for nested pause/enable calls.
	trackStack []bool

	// triggerDepth counts nested Trigger calls. Direct effects collected
	// anywhere in the cascade run when the outermost call drains.
	triggerDepth int

	// pendingDirect is the cascade's worklist of direct effects.
	pendingDirect []*Effect

	// pendingCursor is the drain position within pendingDirect. Dedup of
	// newly collected effects scans from here (or one past here for
	// allow-recurse effects), mirroring the scheduler's queue rule.
	pendingCursor int

	// cascadeRuns counts invocations per effect within one cascade, for
	// runaway-recursion detection. Discarded when the cascade settles.
	cascadeRuns map[*Effect]int
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// currentContext returns the tracking context for the current goroutine,
// creating it on first use.
func currentContext() *trackingContext {
	gid := goid.Get()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{shouldTrack: true}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// activeEffect returns the innermost running effect, or nil.
func (tc *trackingContext) activeEffect() *Effect {
	if n := len(tc.effectStack); n > 0 {
		return tc.effectStack[n-1]
	}
	return nil
}

// onStack reports whether e is anywhere on the running-effect stack.
func (tc *trackingContext) onStack(e *Effect) bool {
	for _, cur := range tc.effectStack {
		if cur == e {
			return true
		}
	}
	return false
}

// pushTracking saves the current switch state and installs a new one.
func (tc *trackingContext) pushTracking(enabled bool) {
	tc.trackStack = append(tc.trackStack, tc.shouldTrack)
	tc.shouldTrack = enabled
}

// popTracking restores the switch state saved by the matching push.
func (tc *trackingContext) popTracking() {
	n := len(tc.trackStack)
	if n == 0 {
		serrors.Warn(serrors.New("E002"))
		tc.shouldTrack = true
		return
	}
	tc.shouldTrack = tc.trackStack[n-1]
	tc.trackStack = tc.trackStack[:n-1]
}

// PauseTracking disables dependency tracking on the current goroutine
// until the matching ResetTracking. Calls nest arbitrarily deep; each
// ResetTracking restores the exact prior state.
//
// This is how internal operations (an interception layer adjusting array
// book-keeping, for example) read observable state without creating
// spurious subscriptions.
func PauseTracking() {
	currentContext().pushTracking(false)
}

// EnableTracking re-enables dependency tracking on the current goroutine
// until the matching ResetTracking, regardless of outer pauses.
func EnableTracking() {
	currentContext().pushTracking(true)
}

// ResetTracking restores the tracking state saved by the most recent
// PauseTracking or EnableTracking.
func ResetTracking() {
	currentContext().popTracking()
}

// Untracked runs fn with tracking paused and restores the prior state,
// even if fn panics.
func Untracked(fn func()) {
	PauseTracking()
	defer ResetTracking()
	fn()
}
