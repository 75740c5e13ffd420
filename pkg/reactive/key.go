package reactive

import "strconv"

// Key identifies a dependency within a target: a property name, an array
// index produced by IndexKey, or one of the iteration sentinels.
type Key string

const (
	// KeyIterate is the sentinel key subscribed to by iterations over a
	// target's keys or entries. Writes that add or remove keys trigger it.
	KeyIterate Key = "\x00iterate"

	// KeyMapKeyIterate is the sentinel key for iterations over a map-like
	// target's key set only (values not observed).
	KeyMapKeyIterate Key = "\x00map-key-iterate"

	// KeyLength is the length property of an array-like target. Setting it
	// to a smaller value invalidates all now-out-of-range index keys.
	KeyLength Key = "length"

	// KeyValue is the synthetic key used by single-value sources such as
	// Ref and Computed.
	KeyValue Key = "value"
)

// IndexKey returns the Key for a numeric array index.
func IndexKey(i int) Key {
	return Key(strconv.Itoa(i))
}

// Index reports the numeric index a key encodes, if any.
func (k Key) Index() (int, bool) {
	i, err := strconv.Atoi(string(k))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
