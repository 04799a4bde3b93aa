package tagtree

import (
	"fmt"
	"io/fs"
	"slices"
	"sync"
)

// MemStorage keeps the encoded tree in memory. It is used by tests and by
// callers that manage persistence themselves.
type MemStorage struct {
	Name string

	mu     sync.Mutex
	data   []byte
	exists bool
}

// NewMemStorage returns a storage holding a copy of data, or an empty storage
// if data is nil.
func NewMemStorage(data []byte) *MemStorage {
	s := &MemStorage{Name: "memory"}
	if data != nil {
		s.data = slices.Clone(data)
		s.exists = true
	}
	return s
}

func (s *MemStorage) Read(fn func(data []byte) error) error {
	s.mu.Lock()
	data, exists := s.data, s.exists
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("%s: %w", s, fs.ErrNotExist)
	}
	// Replace swaps the slice instead of writing into it, so data stays
	// intact while fn runs.
	return fn(data)
}

func (s *MemStorage) Replace(data []byte) error {
	data = slices.Clone(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.exists = true
	return nil
}

// Bytes returns a copy of the stored data, or nil if nothing is stored.
func (s *MemStorage) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return nil
	}
	return slices.Clone(s.data)
}

func (s *MemStorage) String() string {
	if s.Name == "" {
		return "memory"
	}
	return s.Name
}
