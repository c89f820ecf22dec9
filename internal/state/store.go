// Package state encapsulates the shared rover state behind a single mutex.
// The control loop is the only writer; HTTP handlers are pure readers that
// take one deep copy and serialize it after the lock is released.
package state

import (
	"sync"

	"github.com/nova-explorer/roverd/internal/rover"
)

// Store holds the current rover state. The zero value is not usable; use
// NewStore.
type Store struct {
	mu sync.Mutex
	st rover.State
}

// NewStore returns a store initialized to the zero-knowledge state.
func NewStore() *Store {
	return &Store{st: rover.NewState()}
}

// Read returns a deep copy of the current state. Callers own the copy and
// may serialize or inspect it without further locking.
func (s *Store) Read() rover.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

// Mutate runs fn with exclusive access to the live state. All multi-field
// updates belonging to one control-loop phase must happen within a single
// Mutate call so readers never observe a half-applied cycle. fn must not
// block on I/O.
func (s *Store) Mutate(fn func(*rover.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}
