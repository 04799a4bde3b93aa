package tagtree

import (
	"bytes"
	"math"
	"slices"
)

// Equal reports whether a and b are structurally equal. Compounds compare as
// maps (entry order is ignored); lists must have the same element kind and
// order. Floats compare by bit pattern, so NaN equals an identical NaN.
func Equal(a, b Value) bool {
	return equal(a, b, false)
}

// EqualOrdered is like Equal, but also requires compound entries to be in
// the same order, which is what makes two trees encode identically.
func EqualOrdered(a, b Value) bool {
	return equal(a, b, true)
}

// Equal reports whether c and other hold equal entries. See the package-level
// Equal.
func (c *Compound) Equal(other *Compound) bool {
	return equalCompounds(c, other, false)
}

func equal(a, b Value, ordered bool) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case Byte, Short, Int, Long, String:
		return a == b
	case Float:
		return math.Float32bits(float32(a)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(a)) == math.Float64bits(float64(b.(Double)))
	case ByteArray:
		return bytes.Equal(a, b.(ByteArray))
	case IntArray:
		return slices.Equal(a, b.(IntArray))
	case LongArray:
		return slices.Equal(a, b.(LongArray))
	case Raw:
		return bytes.Equal(a.Payload, b.(Raw).Payload)
	case *List:
		bl := b.(*List)
		if a == nil || bl == nil {
			return a == bl
		}
		if a.elem != bl.elem || len(a.items) != len(bl.items) {
			return false
		}
		for i := range a.items {
			if !equal(a.items[i], bl.items[i], ordered) {
				return false
			}
		}
		return true
	case *Compound:
		return equalCompounds(a, b.(*Compound), ordered)
	default:
		panic("unreachable")
	}
}

func equalCompounds(a, b *Compound, ordered bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.entries) != len(b.entries) {
		return false
	}
	for i, e := range a.entries {
		var other Value
		if ordered {
			if b.entries[i].key != e.key {
				return false
			}
			other = b.entries[i].val
		} else {
			v, found := b.Get(e.key)
			if !found {
				return false
			}
			other = v
		}
		if !equal(e.val, other, ordered) {
			return false
		}
	}
	return true
}
