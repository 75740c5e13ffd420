package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// obsArr is an array-shaped counterpart to obsMap: integer index keys plus
// an observable length with shrink semantics.
type obsArr struct {
	id    TargetID
	items []any
}

func newObsArr(items ...any) *obsArr {
	return &obsArr{id: RegisterTarget(TargetArray), items: items}
}

func (a *obsArr) get(i int) any {
	Track(a.id, TrackGet, IndexKey(i))
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

func (a *obsArr) length() int {
	Track(a.id, TrackGet, KeyLength)
	return len(a.items)
}

func (a *obsArr) set(i int, v any) {
	old := a.items[i]
	a.items[i] = v
	if !defaultEquals(old, v) {
		Trigger(a.id, TriggerSet, IndexKey(i), v, old)
	}
}

func (a *obsArr) push(v any) {
	a.items = append(a.items, v)
	Trigger(a.id, TriggerAdd, IndexKey(len(a.items)-1), v, nil)
}

func (a *obsArr) setLength(n int) {
	old := len(a.items)
	if n == old {
		return
	}
	if n < old {
		a.items = a.items[:n]
	} else {
		a.items = append(a.items, make([]any, n-old)...)
	}
	Trigger(a.id, TriggerSet, KeyLength, n, old)
}

func TestClearNotifiesEveryKey(t *testing.T) {
	m := newObsMap()
	defer ReleaseTarget(m.id)
	m.set("x", 1)
	m.set("y", 2)

	xRuns, yRuns, bothRuns := 0, 0, 0
	ex := NewEffect(func() { m.get("x"); xRuns++ })
	defer ex.Stop()
	ey := NewEffect(func() { m.get("y"); yRuns++ })
	defer ey.Stop()
	eb := NewEffect(func() { m.get("x"); m.get("y"); bothRuns++ })
	defer eb.Stop()

	m.clear()

	assert.Equal(t, 2, xRuns)
	assert.Equal(t, 2, yRuns)
	// Subscribed through two keys, still invoked exactly once.
	assert.Equal(t, 2, bothRuns)
}

func TestMapIterationSentinels(t *testing.T) {
	m := newObsMap()
	defer ReleaseTarget(m.id)
	m.set("k", 1)

	sizeRuns, keysRuns, getRuns, hasRuns := 0, 0, 0, 0
	eSize := NewEffect(func() { m.size(); sizeRuns++ })
	defer eSize.Stop()
	eKeys := NewEffect(func() { m.keys(); keysRuns++ })
	defer eKeys.Stop()
	eGet := NewEffect(func() { m.get("k"); getRuns++ })
	defer eGet.Stop()
	eHas := NewEffect(func() { m.has("k"); hasRuns++ })
	defer eHas.Stop()

	// Adding a key changes the key set: iteration re-runs, reads of other
	// keys do not.
	m.set("k2", 2)
	assert.Equal(t, 2, sizeRuns)
	assert.Equal(t, 2, keysRuns)
	assert.Equal(t, 1, getRuns)

	// Overwriting an existing key leaves the key set unchanged.
	m.set("k", 10)
	assert.Equal(t, 2, sizeRuns)
	assert.Equal(t, 2, keysRuns)
	assert.Equal(t, 2, getRuns)

	// Deleting re-runs both the key's readers and the iterators.
	m.del("k")
	assert.Equal(t, 3, sizeRuns)
	assert.Equal(t, 3, keysRuns)
	assert.Equal(t, 3, getRuns)
	assert.Equal(t, 3, hasRuns)
}

func TestArrayShrinkInvalidatesOutOfRange(t *testing.T) {
	a := newObsArr(0, 1, 2, 3, 4, 5)
	defer ReleaseTarget(a.id)

	lowRuns, highRuns, lenRuns := 0, 0, 0
	eLow := NewEffect(func() { a.get(1); lowRuns++ })
	defer eLow.Stop()
	eHigh := NewEffect(func() { a.get(5); highRuns++ })
	defer eHigh.Stop()
	eLen := NewEffect(func() { a.length(); lenRuns++ })
	defer eLen.Stop()

	a.setLength(2)

	assert.Equal(t, 2, lenRuns, "length readers see the shrink")
	assert.Equal(t, 2, highRuns, "index beyond the new length is invalidated")
	assert.Equal(t, 1, lowRuns, "index still in range is untouched")
}

func TestArrayPushNotifiesLength(t *testing.T) {
	a := newObsArr(10)
	defer ReleaseTarget(a.id)

	lenRuns, headRuns := 0, 0
	eLen := NewEffect(func() { a.length(); lenRuns++ })
	defer eLen.Stop()
	eHead := NewEffect(func() { a.get(0); headRuns++ })
	defer eHead.Stop()

	a.push(20)
	assert.Equal(t, 2, lenRuns)
	assert.Equal(t, 1, headRuns)

	// Overwriting in place changes neither length nor other indices.
	a.set(1, 30)
	assert.Equal(t, 2, lenRuns)
	assert.Equal(t, 1, headRuns)
}

func TestTriggerDedupAcrossDiamond(t *testing.T) {
	src := NewRef(1)
	defer src.Release()

	left := NewComputed(func() int { return src.Value() + 1 })
	defer left.Stop()
	right := NewComputed(func() int { return src.Value() + 2 })
	defer right.Stop()

	runs := 0
	var sum int
	e := NewEffect(func() {
		sum = left.Value() + right.Value()
		runs++
	})
	defer e.Stop()
	require.Equal(t, 1, runs)
	require.Equal(t, 5, sum)

	// One write reaches the effect through both arms; it re-runs once.
	src.SetValue(10)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 23, sum)
}

func TestTriggerOnUnregisteredTargetIsNoOp(t *testing.T) {
	id := RegisterTarget(TargetObject)
	ReleaseTarget(id)

	// Must not panic or notify anything.
	Trigger(id, TriggerSet, "x", 1, 0)
}

func TestUnregisteredTargetWarnsInDebug(t *testing.T) {
	Debug = true
	defer func() { Debug = false }()
	warnings := captureWarnings(t)

	id := RegisterTarget(TargetObject)
	ReleaseTarget(id)
	Trigger(id, TriggerSet, "x", 1, 0)

	require.Len(t, *warnings, 1)
	assert.Equal(t, "E003", (*warnings)[0].Code)
}

func TestIndexKeyRoundTrip(t *testing.T) {
	k := IndexKey(42)
	idx, ok := k.Index()
	require.True(t, ok)
	assert.Equal(t, 42, idx)

	_, ok = Key("length").Index()
	assert.False(t, ok)
	_, ok = Key("-1").Index()
	assert.False(t, ok)
}
