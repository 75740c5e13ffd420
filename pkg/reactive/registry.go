package reactive

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	serrors "github.com/strand-ui/strand/internal/errors"
)

// Debug enables internal consistency diagnostics (warnings on operations
// against unregistered targets and double-stops). Set at startup.
var Debug bool

// TargetID identifies a registered target. The engine keys all dependency
// state by this id rather than by the application object itself, so
// releasing the id is all it takes to sever the engine's knowledge of the
// target.
type TargetID uint64

// TargetKind selects the trigger dispatch rules that apply to a target.
type TargetKind uint8

const (
	// TargetObject is a plain keyed object.
	TargetObject TargetKind = iota

	// TargetArray is an array-like target: integer index keys plus a
	// length key with shrink semantics.
	TargetArray

	// TargetMap is a map-like target: iteration over keys and entries is
	// observable separately (KeyIterate, KeyMapKeyIterate).
	TargetMap
)

// depSet is the set of effects subscribed to one (target, key) pair.
// Membership is idempotent; mapset handles its own locking.
type depSet = mapset.Set[*Effect]

// targetEntry holds the per-key dependency sets for one target.
type targetEntry struct {
	kind TargetKind
	deps map[Key]depSet
}

var (
	registryMu sync.RWMutex
	registry   = make(map[TargetID]*targetEntry)
)

// RegisterTarget allocates an id for a new observable target.
// Dependency sets under it are created lazily on first tracked read.
func RegisterTarget(kind TargetKind) TargetID {
	id := TargetID(nextID())
	registryMu.Lock()
	registry[id] = &targetEntry{kind: kind, deps: make(map[Key]depSet)}
	registryMu.Unlock()
	return id
}

// ReleaseTarget removes all dependency state for a target. Effects keep
// their reverse edges into the orphaned sets until their next run or stop,
// which is harmless: the sets are no longer reachable from any trigger.
func ReleaseTarget(id TargetID) {
	registryMu.Lock()
	_, ok := registry[id]
	delete(registry, id)
	registryMu.Unlock()
	if !ok && Debug {
		serrors.Warnf("E003", "ReleaseTarget(%d)", id)
	}
}

// lookupTarget returns the entry for id, or nil.
func lookupTarget(id TargetID) *targetEntry {
	registryMu.RLock()
	entry := registry[id]
	registryMu.RUnlock()
	return entry
}

// depsFor returns the dependency set for (id, key), creating it when
// create is set. Returns nil for unregistered targets.
func depsFor(id TargetID, key Key, create bool) depSet {
	registryMu.RLock()
	entry := registry[id]
	var set depSet
	if entry != nil {
		set = entry.deps[key]
	}
	registryMu.RUnlock()

	if set != nil || !create || entry == nil {
		return set
	}

	registryMu.Lock()
	// Re-check: another goroutine may have created it.
	if entry, ok := registry[id]; ok {
		if set = entry.deps[key]; set == nil {
			set = mapset.NewSet[*Effect]()
			entry.deps[key] = set
		}
	}
	registryMu.Unlock()
	return set
}
