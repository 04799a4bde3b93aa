// Package adapter defines the boundary between tag trees and live host
// objects.
//
// The tagtree package owns trees and their encoding; it never looks at host
// objects or host versions. An Adapter owns both: it knows how to project an
// object's state onto a compound and back for the host it runs on. When that
// knowledge differs between host versions, a Table selects the strategy for
// the detected version.
package adapter

import (
	"fmt"

	"github.com/andreyvit/tagtree"
)

// Adapter projects objects of type T to and from tag trees.
type Adapter[T any] interface {
	// ToTagTree captures the state of obj as a new detached compound.
	ToTagTree(obj T) (*tagtree.Compound, error)

	// FromTagTree applies the state held in c to obj. c is not retained.
	FromTagTree(obj T, c *tagtree.Compound) error
}

// Funcs turns a pair of functions into an Adapter.
type Funcs[T any] struct {
	To   func(obj T) (*tagtree.Compound, error)
	From func(obj T, c *tagtree.Compound) error
}

func (a Funcs[T]) ToTagTree(obj T) (*tagtree.Compound, error) {
	return a.To(obj)
}

func (a Funcs[T]) FromTagTree(obj T, c *tagtree.Compound) error {
	return a.From(obj, c)
}

// Capture stores the adapter's projection of obj under key in the root of f,
// holding the file's exclusive lock. It does not save f.
func Capture[T any](f *tagtree.File, key string, a Adapter[T], obj T) error {
	c, err := a.ToTagTree(obj)
	if err != nil {
		return fmt.Errorf("capture %q: %w", key, err)
	}
	return f.Update(func(root *tagtree.Compound) error {
		return root.Set(key, c)
	})
}

// Restore applies the compound stored under key in the root of f to obj,
// holding the file's shared lock.
func Restore[T any](f *tagtree.File, key string, a Adapter[T], obj T) error {
	return f.Read(func(root *tagtree.Compound) error {
		c, err := root.GetCompound(key)
		if err != nil {
			return fmt.Errorf("restore %q: %w", key, err)
		}
		if err := a.FromTagTree(obj, c); err != nil {
			return fmt.Errorf("restore %q: %w", key, err)
		}
		return nil
	})
}
