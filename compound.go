package tagtree

import (
	"iter"
)

// Compound is an ordered mapping from names to values. Keys are unique;
// iteration follows insertion order, and replacing the value of an existing
// key keeps its position.
//
// The zero value is an empty compound ready to use. A Compound is not safe for
// concurrent mutation, but any number of goroutines may read it concurrently.
type Compound struct {
	entries []entry
	index   map[string]int
	parent  any
}

type entry struct {
	key string
	val Value
}

func NewCompound() *Compound {
	return &Compound{}
}

func (c *Compound) Len() int {
	return len(c.entries)
}

func (c *Compound) Has(key string) bool {
	_, found := c.index[key]
	return found
}

func (c *Compound) Get(key string) (Value, bool) {
	i, found := c.index[key]
	if !found {
		return nil, false
	}
	return c.entries[i].val, true
}

// Keys returns the keys in insertion order.
func (c *Compound) Keys() []string {
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.key
	}
	return keys
}

// All iterates over the entries in insertion order.
func (c *Compound) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, e := range c.entries {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

// Set stores v under key, taking ownership of v. A list or compound that
// already belongs to a tree (including this one) is refused with
// ErrAlreadyOwned; insert a Clone instead.
func (c *Compound) Set(key string, v Value) error {
	if isNil(v) {
		return treeErrf(key, "nil value")
	}
	if i, found := c.index[key]; found {
		old := c.entries[i].val
		if sameNode(old, v) {
			return nil
		}
		if err := adopt(c, v); err != nil {
			return err
		}
		release(old)
		c.entries[i].val = v
		return nil
	}
	if err := adopt(c, v); err != nil {
		return err
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, entry{key, v})
	return nil
}

// set is Set for values known to be valid, used by the decoder and Clone.
func (c *Compound) set(key string, v Value) {
	ensure(c.Set(key, v))
}

func (c *Compound) SetByte(key string, v int8)        { c.set(key, Byte(v)) }
func (c *Compound) SetShort(key string, v int16)      { c.set(key, Short(v)) }
func (c *Compound) SetInt(key string, v int32)        { c.set(key, Int(v)) }
func (c *Compound) SetLong(key string, v int64)       { c.set(key, Long(v)) }
func (c *Compound) SetFloat(key string, v float32)    { c.set(key, Float(v)) }
func (c *Compound) SetDouble(key string, v float64)   { c.set(key, Double(v)) }
func (c *Compound) SetString(key string, v string)    { c.set(key, String(v)) }
func (c *Compound) SetByteArray(key string, v []byte) { c.set(key, ByteArray(v)) }
func (c *Compound) SetIntArray(key string, v []int32) { c.set(key, IntArray(v)) }
func (c *Compound) SetLongArray(key string, v []int64) {
	c.set(key, LongArray(v))
}

// SetBool stores v as a Byte, 1 for true and 0 for false.
func (c *Compound) SetBool(key string, v bool) {
	var b Byte
	if v {
		b = 1
	}
	c.set(key, b)
}

// Remove deletes key, returning the detached value.
func (c *Compound) Remove(key string) (Value, bool) {
	i, found := c.index[key]
	if !found {
		return nil, false
	}
	v := c.entries[i].val
	release(v)
	delete(c.index, key)
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].key] = j
	}
	return v, true
}

func (c *Compound) Clear() {
	for _, e := range c.entries {
		release(e.val)
	}
	c.entries = nil
	c.index = nil
}

// Clone returns a detached deep copy of c.
func (c *Compound) Clone() *Compound {
	r := &Compound{
		entries: make([]entry, 0, len(c.entries)),
		index:   make(map[string]int, len(c.entries)),
	}
	for _, e := range c.entries {
		r.set(e.key, Clone(e.val))
	}
	return r
}

// Merge copies every entry of src into c. Nested compounds present on both
// sides are merged recursively; everything else is cloned and replaces the
// existing value.
func (c *Compound) Merge(src *Compound) {
	for _, e := range src.entries {
		if sub, ok := e.val.(*Compound); ok {
			if dst, ok := c.childCompound(e.key); ok {
				dst.Merge(sub)
				continue
			}
		}
		c.set(e.key, Clone(e.val))
	}
}

func (c *Compound) childCompound(key string) (*Compound, bool) {
	v, _ := c.Get(key)
	sub, ok := v.(*Compound)
	return sub, ok
}

func (c *Compound) String() string {
	return Format(c)
}

func getTyped[T Value](c *Compound, key string, want Kind) (T, error) {
	var zero T
	v, found := c.Get(key)
	if !found {
		return zero, keyNotFound(key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, typeErr(key, want, v.Kind())
	}
	return t, nil
}

func (c *Compound) GetByte(key string) (int8, error) {
	v, err := getTyped[Byte](c, key, KindByte)
	return int8(v), err
}

func (c *Compound) GetShort(key string) (int16, error) {
	v, err := getTyped[Short](c, key, KindShort)
	return int16(v), err
}

func (c *Compound) GetInt(key string) (int32, error) {
	v, err := getTyped[Int](c, key, KindInt)
	return int32(v), err
}

func (c *Compound) GetLong(key string) (int64, error) {
	v, err := getTyped[Long](c, key, KindLong)
	return int64(v), err
}

func (c *Compound) GetFloat(key string) (float32, error) {
	v, err := getTyped[Float](c, key, KindFloat)
	return float32(v), err
}

func (c *Compound) GetDouble(key string) (float64, error) {
	v, err := getTyped[Double](c, key, KindDouble)
	return float64(v), err
}

func (c *Compound) GetString(key string) (string, error) {
	v, err := getTyped[String](c, key, KindString)
	return string(v), err
}

// GetBool reads a Byte stored by SetBool; any non-zero value is true.
func (c *Compound) GetBool(key string) (bool, error) {
	v, err := getTyped[Byte](c, key, KindByte)
	return v != 0, err
}

func (c *Compound) GetByteArray(key string) ([]byte, error) {
	v, err := getTyped[ByteArray](c, key, KindByteArray)
	return []byte(v), err
}

func (c *Compound) GetIntArray(key string) ([]int32, error) {
	v, err := getTyped[IntArray](c, key, KindIntArray)
	return []int32(v), err
}

func (c *Compound) GetLongArray(key string) ([]int64, error) {
	v, err := getTyped[LongArray](c, key, KindLongArray)
	return []int64(v), err
}

func (c *Compound) GetList(key string) (*List, error) {
	return getTyped[*List](c, key, KindList)
}

func (c *Compound) GetCompound(key string) (*Compound, error) {
	return getTyped[*Compound](c, key, KindCompound)
}

// Ensure returns the compound stored under key, creating an empty one if the
// key is absent. An existing value of another kind is a type mismatch.
func (c *Compound) Ensure(key string) (*Compound, error) {
	v, found := c.Get(key)
	if !found {
		sub := NewCompound()
		c.set(key, sub)
		return sub, nil
	}
	sub, ok := v.(*Compound)
	if !ok {
		return nil, typeErr(key, KindCompound, v.Kind())
	}
	return sub, nil
}
