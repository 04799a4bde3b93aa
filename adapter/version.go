package adapter

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/andreyvit/tagtree"
)

var ErrNoStrategy = errors.New("no strategy for host version")

// Version is a host version such as 1.20.4. Missing components are zero.
type Version struct {
	Major, Minor, Patch int
}

func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("invalid version %q", s)
	}
	dst := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		*dst[i] = n
	}
	return v, nil
}

func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Table maps host versions to adapter strategies. Each strategy applies from
// its minimum version up to the next registered one. A Table is not safe for
// concurrent registration; build it up front.
type Table[T any] struct {
	entries []tableEntry[T]
}

type tableEntry[T any] struct {
	min Version
	a   Adapter[T]
}

// Register adds a strategy for hosts at min or newer, replacing any strategy
// registered for exactly min.
func (t *Table[T]) Register(min Version, a Adapter[T]) {
	i, found := slices.BinarySearchFunc(t.entries, min, func(e tableEntry[T], v Version) int {
		return e.min.Compare(v)
	})
	if found {
		t.entries[i].a = a
		return
	}
	t.entries = slices.Insert(t.entries, i, tableEntry[T]{min, a})
}

// Resolve returns the strategy with the highest minimum version not above v.
func (t *Table[T]) Resolve(v Version) (Adapter[T], error) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].min.Compare(v) <= 0 {
			return t.entries[i].a, nil
		}
	}
	return nil, fmt.Errorf("%v: %w", v, ErrNoStrategy)
}

// Chain tries each adapter in order until one succeeds, for hosts where the
// version does not tell which internal layout is present. The errors of all
// attempts are joined when every one fails.
type Chain[T any] []Adapter[T]

func (c Chain[T]) ToTagTree(obj T) (*tagtree.Compound, error) {
	var errs []error
	for _, a := range c {
		r, err := a.ToTagTree(obj)
		if err == nil {
			return r, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrNoStrategy}, errs...)...)
}

func (c Chain[T]) FromTagTree(obj T, tree *tagtree.Compound) error {
	var errs []error
	for _, a := range c {
		err := a.FromTagTree(obj, tree)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(append([]error{ErrNoStrategy}, errs...)...)
}
