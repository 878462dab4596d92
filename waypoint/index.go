package waypoint

import "strconv"

// OptionalIndex is a path index that may be absent. The zero value is absent.
type OptionalIndex struct {
	idx int
	ok  bool
}

// NoIndex is the absent index.
var NoIndex = OptionalIndex{}

// IndexOf returns a present index.
func IndexOf(i int) OptionalIndex {
	return OptionalIndex{idx: i, ok: true}
}

// StopIndexFromWire decodes a stop request where any negative value means "no stop".
func StopIndexFromWire(v int32) OptionalIndex {
	if v < 0 {
		return NoIndex
	}
	return IndexOf(int(v))
}

// Get returns the index and whether it is present.
func (o OptionalIndex) Get() (int, bool) {
	return o.idx, o.ok
}

// Valid reports whether the index is present.
func (o OptionalIndex) Valid() bool {
	return o.ok
}

// ToWire encodes the index for transport, -1 when absent.
func (o OptionalIndex) ToWire() int32 {
	if !o.ok {
		return -1
	}
	return int32(o.idx)
}

func (o OptionalIndex) String() string {
	if !o.ok {
		return "none"
	}
	return strconv.Itoa(o.idx)
}
