package tagtree

import (
	"math"
	"slices"
)

// IntValue returns an integer value of the given kind. Values that do not fit
// the kind's width are rejected with ErrTypeMismatch rather than truncated.
func IntValue(kind Kind, v int64) (Value, error) {
	switch kind {
	case KindByte:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, typeErrf("%d overflows %s", v, kind)
		}
		return Byte(v), nil
	case KindShort:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, typeErrf("%d overflows %s", v, kind)
		}
		return Short(v), nil
	case KindInt:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, typeErrf("%d overflows %s", v, kind)
		}
		return Int(v), nil
	case KindLong:
		return Long(v), nil
	default:
		return nil, typeErrf("%s is not an integer kind", kind)
	}
}

// FloatValue returns a floating-point value of the given kind. Finite values
// outside the float32 range are rejected for KindFloat.
func FloatValue(kind Kind, v float64) (Value, error) {
	switch kind {
	case KindFloat:
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
			return nil, typeErrf("%g overflows %s", v, kind)
		}
		return Float(v), nil
	case KindDouble:
		return Double(v), nil
	default:
		return nil, typeErrf("%s is not a floating-point kind", kind)
	}
}

// ValueOf converts a native Go value into a tag value.
//
// Signed integers map to the kind of the same width; int maps to Long.
// Unsigned integers map to the narrowest signed kind of at least their width
// that holds the value. bool becomes a Byte. []any becomes a list and must be
// homogeneous; map[string]any becomes a compound with its keys in sorted
// order. Values that are already tag values are returned as is.
//
// On failure, lists and compounds passed in x are left without a parent.
func ValueOf(x any) (Value, error) {
	var built []Value
	v, err := valueOf(x, &built)
	if err != nil {
		for _, b := range built {
			detachChildren(b)
		}
		return nil, err
	}
	return v, nil
}

// valueOf appends every list and compound it creates to built, so that a
// failed conversion can let go of the values they adopted.
func valueOf(x any, built *[]Value) (Value, error) {
	switch x := x.(type) {
	case Value:
		if isNil(x) {
			return nil, typeErrf("nil %T", x)
		}
		return x, nil
	case bool:
		if x {
			return Byte(1), nil
		}
		return Byte(0), nil
	case int8:
		return Byte(x), nil
	case int16:
		return Short(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Long(x), nil
	case int:
		return Long(x), nil
	case uint8:
		return IntValue(KindByte, int64(x))
	case uint16:
		return IntValue(KindShort, int64(x))
	case uint32:
		return IntValue(KindInt, int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return nil, typeErrf("%d overflows %s", x, KindLong)
		}
		return Long(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, typeErrf("%d overflows %s", x, KindLong)
		}
		return Long(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Double(x), nil
	case string:
		return String(x), nil
	case []byte:
		return ByteArray(slices.Clone(x)), nil
	case []int8:
		b := make(ByteArray, len(x))
		for i, v := range x {
			b[i] = byte(v)
		}
		return b, nil
	case []int32:
		return IntArray(slices.Clone(x)), nil
	case []int64:
		return LongArray(slices.Clone(x)), nil
	case []any:
		vals := make([]Value, 0, len(x))
		for _, item := range x {
			v, err := valueOf(item, built)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		l, err := ListOf(vals...)
		if err != nil {
			return nil, err
		}
		*built = append(*built, l)
		return l, nil
	case map[string]any:
		c := NewCompound()
		*built = append(*built, c)
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			v, err := valueOf(x[k], built)
			if err != nil {
				return nil, err
			}
			if err := c.Set(k, v); err != nil {
				return nil, err
			}
		}
		return c, nil
	case nil:
		return nil, typeErrf("nil value")
	default:
		return nil, typeErrf("unsupported Go type %T", x)
	}
}

func detachChildren(v Value) {
	switch v := v.(type) {
	case *List:
		for _, item := range v.items {
			release(item)
		}
		v.items = nil
	case *Compound:
		v.Clear()
	}
}
