package tagtree

import (
	"slices"
)

// Value is a single node of a tag tree. The set of implementations is closed:
// Byte, Short, Int, Long, Float, Double, ByteArray, String, *List, *Compound,
// IntArray, LongArray and Raw.
type Value interface {
	Kind() Kind
	value()
}

type (
	Byte   int8
	Short  int16
	Int    int32
	Long   int64
	Float  float32
	Double float64
	String string

	// ByteArray holds the raw two's-complement bytes of a byte array tag.
	ByteArray []byte
	IntArray  []int32
	LongArray []int64
)

// Raw is a value of an extension kind that the decoder was told how to skip
// but does not interpret. Payload is written back verbatim.
type Raw struct {
	Type    Kind
	Payload []byte
}

func (Byte) Kind() Kind      { return KindByte }
func (Short) Kind() Kind     { return KindShort }
func (Int) Kind() Kind       { return KindInt }
func (Long) Kind() Kind      { return KindLong }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (String) Kind() Kind    { return KindString }
func (ByteArray) Kind() Kind { return KindByteArray }
func (IntArray) Kind() Kind  { return KindIntArray }
func (LongArray) Kind() Kind { return KindLongArray }
func (*List) Kind() Kind     { return KindList }
func (*Compound) Kind() Kind { return KindCompound }
func (r Raw) Kind() Kind     { return r.Type }

func (Byte) value()      {}
func (Short) value()     {}
func (Int) value()       {}
func (Long) value()      {}
func (Float) value()     {}
func (Double) value()    {}
func (String) value()    {}
func (ByteArray) value() {}
func (IntArray) value()  {}
func (LongArray) value() {}
func (*List) value()     {}
func (*Compound) value() {}
func (Raw) value()       {}

// Clone returns a deep copy of v. Cloned lists and compounds are detached.
func Clone(v Value) Value {
	switch v := v.(type) {
	case ByteArray:
		return ByteArray(slices.Clone(v))
	case IntArray:
		return IntArray(slices.Clone(v))
	case LongArray:
		return LongArray(slices.Clone(v))
	case *List:
		return v.Clone()
	case *Compound:
		return v.Clone()
	case Raw:
		return Raw{v.Type, slices.Clone(v.Payload)}
	default:
		return v
	}
}

func isNil(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *List:
		return v == nil
	case *Compound:
		return v == nil
	default:
		return false
	}
}

// The owner of a list or compound is the *List or *Compound it is stored in,
// or a *File for file roots. A nil owner means the value is detached.

func ownerSlot(v Value) *any {
	switch v := v.(type) {
	case *List:
		return &v.parent
	case *Compound:
		return &v.parent
	default:
		return nil
	}
}

func ownerOf(v any) any {
	switch v := v.(type) {
	case *List:
		return v.parent
	case *Compound:
		return v.parent
	default:
		return nil
	}
}

// adopt records parent as the owner of child, refusing values that already
// have an owner and values that would make the tree cyclic.
func adopt(parent any, child Value) error {
	slot := ownerSlot(child)
	if slot == nil {
		return nil
	}
	if *slot != nil {
		return ErrAlreadyOwned
	}
	for anc := parent; anc != nil; anc = ownerOf(anc) {
		if anc == any(child) {
			return ErrAlreadyOwned
		}
	}
	*slot = parent
	return nil
}

// sameNode reports whether a and b are the same list or compound. Other kinds
// may hold slices and are never compared.
func sameNode(a, b Value) bool {
	if ownerSlot(a) == nil || ownerSlot(b) == nil {
		return false
	}
	return a == b
}

func release(v Value) {
	if slot := ownerSlot(v); slot != nil {
		*slot = nil
	}
}
