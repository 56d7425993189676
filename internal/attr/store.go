package attr

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Store is a name-keyed attribute container. Absent names read as NotSet.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	attrs map[string]Attribute
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{attrs: make(map[string]Attribute)}
}

// Get returns the named attribute, or NotSet if absent. It never fails.
func (s *Store) Get(name string) Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs[name]
}

// Set replaces the named attribute. Setting an unset value removes the name.
func (s *Store) Set(name string, a Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !a.IsSet() {
		delete(s.attrs, name)
		return
	}
	s.attrs[name] = a
}

func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attrs, name)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attrs)
}

// Names returns the stored names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.attrs))
}

// Snapshot copies the current contents.
func (s *Store) Snapshot() map[string]Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.attrs)
}

// All iterates a consistent snapshot in name order.
func (s *Store) All() iter.Seq2[string, Attribute] {
	snap := s.Snapshot()
	return func(yield func(string, Attribute) bool) {
		for _, name := range slices.Sorted(maps.Keys(snap)) {
			if !yield(name, snap[name]) {
				return
			}
		}
	}
}
