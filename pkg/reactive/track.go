package reactive

// Track records that the currently active effect reads (target, key).
//
// It is a no-op when tracking is paused, when no effect is running on this
// goroutine, or when the target was never registered. Otherwise the active
// effect joins the dependency set for the pair (idempotently) and gains
// the reverse edge used for cleanup on its next run.
func Track(target TargetID, op TrackOp, key Key) {
	tc := currentContext()
	if !tc.shouldTrack {
		return
	}
	e := tc.activeEffect()
	if e == nil {
		return
	}

	set := depsFor(target, key, true)
	if set == nil {
		return
	}
	if set.Add(e) {
		e.addDep(set)
		if e.onTrack != nil {
			e.onTrack(TrackEvent{Effect: e, Target: target, Key: key, Op: op})
		}
	}
}
