package reactive

import (
	"sort"

	serrors "github.com/strand-ui/strand/internal/errors"
)

// RecursionLimit caps how many times one computation may be invoked within
// a single trigger cascade or scheduler flush chain. Exceeding it means a
// self-sustaining update loop that will never converge.
const RecursionLimit = 100

// Trigger notifies every effect subscribed to a mutation of (target, key)
// and invokes each one exactly once per cascade.
//
// Dispatch rules, in order:
//   - TriggerClear schedules every effect subscribed to any key of the
//     target.
//   - A TriggerSet of KeyLength on an array-like target schedules the
//     length subscribers plus subscribers of any index at or beyond the
//     new length (shrinking invalidates out-of-range indices). newValue
//     carries the new length.
//   - Anything else schedules the key's subscribers. TriggerAdd and
//     TriggerDelete additionally schedule the iteration sentinels (the
//     enumerable key set changed): KeyIterate, plus KeyMapKeyIterate on
//     map-like targets. A TriggerAdd of an index key on an array-like
//     target schedules the length subscribers instead.
//
// Deferred effects are handed to their handlers immediately. Direct
// effects collected anywhere in the cascade — including by nested Trigger
// calls made from those handlers or from effects themselves — run
// synchronously, each at most once, before the outermost Trigger returns.
// The engine panics with a fatal diagnostic if an allow-recurse effect
// exceeds RecursionLimit runs within one cascade.
func Trigger(target TargetID, op TriggerOp, key Key, newValue, oldValue any) {
	entry := lookupTarget(target)
	if entry == nil {
		if Debug {
			serrors.Warnf("E003", "Trigger(%d, %s, %q)", target, op, key)
		}
		return
	}

	effects := collect(target, entry, op, key, newValue)
	if len(effects) == 0 {
		return
	}

	tc := currentContext()
	tc.triggerDepth++
	defer func() {
		tc.triggerDepth--
		if tc.triggerDepth == 0 {
			// Reset even on panic so a failed cascade cannot poison the
			// next one.
			tc.pendingDirect = tc.pendingDirect[:0]
			tc.pendingCursor = 0
			tc.cascadeRuns = nil
		}
	}()

	ev := TriggerEvent{Target: target, Key: key, Op: op, NewValue: newValue, OldValue: oldValue}

	// Invalidation handlers first: they are cheap notifications (a
	// computed flipping its dirty flag, a scheduler enqueue) and the
	// direct effects they reach transitively must land on the worklist
	// before it drains.
	for _, e := range effects {
		if e.mode != InvokeDeferred {
			continue
		}
		if e.onTrigger != nil {
			ev.Effect = e
			e.onTrigger(ev)
		}
		e.deferred(e)
	}
	for _, e := range effects {
		if e.mode != InvokeDirect {
			continue
		}
		if e.onTrigger != nil {
			ev.Effect = e
			e.onTrigger(ev)
		}
		tc.scheduleDirect(e)
	}

	if tc.triggerDepth == 1 {
		tc.drainDirect()
	}
}

// collect gathers the deduplicated, id-ordered set of effects the dispatch
// rules select for this write.
func collect(target TargetID, entry *targetEntry, op TriggerOp, key Key, newValue any) []*Effect {
	seen := make(map[*Effect]struct{})
	var effects []*Effect
	add := func(set depSet) {
		if set == nil {
			return
		}
		for _, e := range set.ToSlice() {
			if _, dup := seen[e]; !dup {
				seen[e] = struct{}{}
				effects = append(effects, e)
			}
		}
	}

	registryMu.RLock()
	switch {
	case op == TriggerClear:
		for _, set := range entry.deps {
			add(set)
		}

	case op == TriggerSet && key == KeyLength && entry.kind == TargetArray:
		newLen, ok := toLength(newValue)
		for k, set := range entry.deps {
			if k == KeyLength {
				add(set)
			} else if idx, isIdx := k.Index(); isIdx && ok && idx >= newLen {
				add(set)
			}
		}

	default:
		add(entry.deps[key])
		switch op {
		case TriggerAdd:
			if entry.kind == TargetArray {
				if _, isIdx := key.Index(); isIdx {
					add(entry.deps[KeyLength])
				}
			} else {
				add(entry.deps[KeyIterate])
				if entry.kind == TargetMap {
					add(entry.deps[KeyMapKeyIterate])
				}
			}
		case TriggerDelete:
			if entry.kind != TargetArray {
				add(entry.deps[KeyIterate])
				if entry.kind == TargetMap {
					add(entry.deps[KeyMapKeyIterate])
				}
			}
		}
	}
	registryMu.RUnlock()

	sort.Slice(effects, func(i, j int) bool {
		return effects[i].id < effects[j].id
	})
	return effects
}

// scheduleDirect appends a direct effect to the cascade worklist unless it
// is already pending. Normal effects dedup against the unprocessed portion
// of the worklist including the entry currently executing; allow-recurse
// effects dedup one position later so they may re-queue themselves.
func (tc *trackingContext) scheduleDirect(e *Effect) {
	start := tc.pendingCursor
	if e.allowRecurse {
		start++
	}
	for i := start; i < len(tc.pendingDirect); i++ {
		if tc.pendingDirect[i] == e {
			return
		}
	}
	tc.pendingDirect = append(tc.pendingDirect, e)
}

// drainDirect runs the cascade worklist to quiescence. Effects may append
// new work (through writes they perform) while the drain is in progress.
func (tc *trackingContext) drainDirect() {
	for tc.pendingCursor < len(tc.pendingDirect) {
		e := tc.pendingDirect[tc.pendingCursor]
		if e != nil {
			if tc.cascadeRuns == nil {
				tc.cascadeRuns = make(map[*Effect]int)
			}
			tc.cascadeRuns[e]++
			if tc.cascadeRuns[e] > RecursionLimit {
				panic(serrors.New("E101").WithSource("trigger").
					WithDetailf("effect %d exceeded %d runs in one cascade", e.id, RecursionLimit))
			}
			e.Run()
		}
		tc.pendingCursor++
	}
	tc.pendingDirect = tc.pendingDirect[:0]
	tc.pendingCursor = 0
	tc.cascadeRuns = nil
}

// toLength coerces the new-length value of an array length write.
func toLength(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
