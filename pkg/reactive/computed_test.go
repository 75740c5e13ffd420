package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputedIsLazy(t *testing.T) {
	src := NewRef(2)
	defer src.Release()

	calls := 0
	c := NewComputed(func() int {
		calls++
		return src.Value() * 2
	})
	defer c.Stop()

	assert.Equal(t, 0, calls, "getter must not run at creation")
	assert.True(t, c.Dirty())

	assert.Equal(t, 4, c.Value())
	assert.Equal(t, 1, calls)
	assert.False(t, c.Dirty())

	// Cached: repeated reads do not recompute.
	assert.Equal(t, 4, c.Value())
	assert.Equal(t, 1, calls)
}

func TestComputedInvalidatesWithoutRecomputing(t *testing.T) {
	src := NewRef(1)
	defer src.Release()

	calls := 0
	c := NewComputed(func() int {
		calls++
		return src.Value() + 1
	})
	defer c.Stop()

	require.Equal(t, 2, c.Value())
	require.Equal(t, 1, calls)

	// The write only marks the cache stale.
	src.SetValue(10)
	assert.Equal(t, 1, calls)
	assert.True(t, c.Dirty())

	// The next read pulls the new value.
	assert.Equal(t, 11, c.Value())
	assert.Equal(t, 2, calls)
}

func TestComputedChainRunsEffectOnce(t *testing.T) {
	src := NewRef(1)
	defer src.Release()

	innerCalls, outerCalls := 0, 0
	inner := NewComputed(func() int {
		innerCalls++
		return src.Value() * 2
	})
	defer inner.Stop()
	outer := NewComputed(func() int {
		outerCalls++
		return inner.Value() + 1
	})
	defer outer.Stop()

	runs := 0
	var last int
	e := NewEffect(func() {
		last = outer.Value()
		runs++
	})
	defer e.Stop()

	require.Equal(t, 1, runs)
	require.Equal(t, 3, last)
	require.Equal(t, 1, innerCalls)
	require.Equal(t, 1, outerCalls)

	// One leaf write: the effect re-runs exactly once and each layer
	// recomputes exactly once, pulled by that run.
	src.SetValue(5)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 11, last)
	assert.Equal(t, 2, innerCalls)
	assert.Equal(t, 2, outerCalls)
}

func TestComputedChainMarksAllLayersDirty(t *testing.T) {
	src := NewRef(1)
	defer src.Release()

	inner := NewComputed(func() int { return src.Value() * 2 })
	defer inner.Stop()
	outer := NewComputed(func() int { return inner.Value() + 1 })
	defer outer.Stop()

	require.Equal(t, 3, outer.Value())
	require.False(t, inner.Dirty())
	require.False(t, outer.Dirty())

	src.SetValue(4)
	assert.True(t, inner.Dirty())
	assert.True(t, outer.Dirty())

	assert.Equal(t, 9, outer.Value())
	assert.False(t, inner.Dirty())
	assert.False(t, outer.Dirty())
}

func TestWritableComputed(t *testing.T) {
	src := NewRef(1)
	defer src.Release()

	c := NewWritableComputed(
		func() int { return src.Value() + 1 },
		func(v int) { src.SetValue(v - 1) },
	)
	defer c.Stop()

	require.Equal(t, 2, c.Value())

	c.SetValue(10)
	assert.Equal(t, 9, src.Peek())
	assert.Equal(t, 10, c.Value())
}

func TestReadOnlyComputedWriteWarns(t *testing.T) {
	warnings := captureWarnings(t)

	src := NewRef(1)
	defer src.Release()
	c := NewComputed(func() int { return src.Value() })
	defer c.Stop()
	require.Equal(t, 1, c.Value())

	c.SetValue(99)

	require.Len(t, *warnings, 1)
	assert.Equal(t, "E001", (*warnings)[0].Code)
	assert.Equal(t, 1, c.Value(), "write is ignored")
	assert.Equal(t, 1, src.Peek())
}

func TestComputedPeekDoesNotSubscribe(t *testing.T) {
	src := NewRef(1)
	defer src.Release()
	c := NewComputed(func() int { return src.Value() + 1 })
	defer c.Stop()

	runs := 0
	e := NewEffect(func() {
		c.Peek()
		runs++
	})
	defer e.Stop()
	require.Equal(t, 1, runs)

	src.SetValue(5)
	assert.Equal(t, 1, runs, "peeking effect must not be invalidated")
	assert.Equal(t, 6, c.Peek())
}

func TestComputedStopDetaches(t *testing.T) {
	src := NewRef(1)
	defer src.Release()

	calls := 0
	c := NewComputed(func() int {
		calls++
		return src.Value()
	})
	require.Equal(t, 1, c.Value())

	c.Stop()
	src.SetValue(2)

	// The getter no longer recomputes; the last value stays readable.
	assert.Equal(t, 1, c.Value())
	assert.Equal(t, 1, calls)
}

func TestComputedEffectIDOrdersCreation(t *testing.T) {
	a := NewComputed(func() int { return 1 })
	defer a.Stop()
	b := NewComputed(func() int { return 2 })
	defer b.Stop()

	assert.Less(t, a.Effect().ID(), b.Effect().ID())
}
