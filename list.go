package tagtree

import (
	"fmt"
	"iter"
)

// List is an ordered sequence of values of a single kind. An empty list
// created without a kind reports KindEnd until the first Append.
type List struct {
	elem   Kind
	items  []Value
	parent any
}

// NewList returns an empty list of the given element kind. Pass KindEnd to let
// the first appended value choose the kind.
func NewList(elem Kind) *List {
	return &List{elem: elem}
}

// ListOf returns a list holding vals, which must all be of the same kind.
func ListOf(vals ...Value) (*List, error) {
	l := &List{}
	for _, v := range vals {
		if err := l.Append(v); err != nil {
			for _, added := range l.items {
				release(added)
			}
			return nil, err
		}
	}
	return l, nil
}

// Elem returns the element kind.
func (l *List) Elem() Kind {
	return l.elem
}

func (l *List) Len() int {
	return len(l.items)
}

func (l *List) At(i int) Value {
	return l.items[i]
}

func (l *List) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i, v := range l.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (l *List) check(v Value) error {
	if isNil(v) {
		return treeErrf("", "nil list element")
	}
	if l.elem != KindEnd && v.Kind() != l.elem {
		return typeErr("", l.elem, v.Kind())
	}
	return nil
}

// Append adds v to the end of the list, taking ownership of it.
func (l *List) Append(v Value) error {
	if err := l.check(v); err != nil {
		return err
	}
	if err := adopt(l, v); err != nil {
		return err
	}
	if l.elem == KindEnd {
		l.elem = v.Kind()
	}
	l.items = append(l.items, v)
	return nil
}

// Set replaces the i-th element.
func (l *List) Set(i int, v Value) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("list index %d out of range [0, %d)", i, len(l.items))
	}
	if err := l.check(v); err != nil {
		return err
	}
	old := l.items[i]
	if sameNode(old, v) {
		return nil
	}
	if err := adopt(l, v); err != nil {
		return err
	}
	release(old)
	l.items[i] = v
	return nil
}

// Remove deletes the i-th element and returns it detached. The element kind
// is kept even when the list becomes empty.
func (l *List) Remove(i int) Value {
	v := l.items[i]
	release(v)
	l.items = append(l.items[:i], l.items[i+1:]...)
	return v
}

// CompoundAt returns the i-th element of a list of compounds.
func (l *List) CompoundAt(i int) (*Compound, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("[%d]: %w", i, ErrKeyNotFound)
	}
	c, ok := l.items[i].(*Compound)
	if !ok {
		return nil, typeErr("", KindCompound, l.items[i].Kind())
	}
	return c, nil
}

// Clone returns a detached deep copy of l.
func (l *List) Clone() *List {
	r := &List{elem: l.elem, items: make([]Value, len(l.items))}
	for i, v := range l.items {
		c := Clone(v)
		if slot := ownerSlot(c); slot != nil {
			*slot = r
		}
		r.items[i] = c
	}
	return r
}

func (l *List) String() string {
	return Format(l)
}
