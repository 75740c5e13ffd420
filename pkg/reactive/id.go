package reactive

import "sync/atomic"

// globalIDCounter is the source of unique ids for effects and targets.
// Atomic increments keep id generation lock-free.
var globalIDCounter uint64

// nextID returns the next unique id.
// Ids are monotonically increasing and never reused; effect ids double as
// the scheduler's priority sort key, which is what guarantees
// parent-before-child ordering for effects created in traversal order.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
