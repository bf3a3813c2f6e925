package dataset

import (
	"errors"
	"sync"
)

// ErrNoDataset is returned when an operation runs before any file was loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Store holds the single active dataset for one session. Uploading a new
// file replaces the previous dataset in one step; readers always see either
// the old table or the new one, never a mix.
type Store struct {
	mu sync.RWMutex
	ds *Dataset
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new dataset, discarding the previous one.
func (s *Store) Replace(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
}

// Current returns the active dataset, or ErrNoDataset when none is loaded.
func (s *Store) Current() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, ErrNoDataset
	}
	return s.ds, nil
}

// Clear drops the active dataset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = nil
}
