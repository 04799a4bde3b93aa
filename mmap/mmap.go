// Package mmap maps files into memory read-only, so that large stored trees
// can be decoded without first copying them into the heap.
package mmap

import (
	"fmt"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 0

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 1
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Map maps the first size bytes of f. The mapping stays valid after f is
// closed and must be released with Unmap. The returned slice must not be
// written to.
func Map(f *os.File, size int, opt Options) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap %s: invalid size %d", f.Name(), size)
	}
	if uint64(size) > MaxSize {
		return nil, fmt.Errorf("mmap %s: size %d exceeds %d", f.Name(), size, uint64(MaxSize))
	}
	if opt.Has(SequentialAccess) && opt.Has(RandomAccess) {
		panic("mmap: SequentialAccess and RandomAccess are mutually exclusive")
	}
	return mmap(f, size, opt)
}

// Unmap releases a slice returned by Map.
func Unmap(b []byte) error {
	return munmap(b)
}
