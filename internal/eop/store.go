package eop

import (
	"sync"
	"sync/atomic"
	"time"
)

// Dataset is an immutable snapshot of the loaded EOP tables.
type Dataset struct {
	IAU1980  *IAU1980
	IAU2000A *IAU2000A
	Sources  map[Model]string
	LoadedAt map[Model]time.Time
}

// ForModel returns the data for m, or nil when that model is not loaded.
// The result is an untyped nil in that case so callers can compare it to nil.
func (ds *Dataset) ForModel(m Model) Data {
	if ds == nil {
		return nil
	}
	switch m {
	case ModelIAU1980:
		if ds.IAU1980 != nil {
			return ds.IAU1980
		}
	case ModelIAU2000A:
		if ds.IAU2000A != nil {
			return ds.IAU2000A
		}
	}
	return nil
}

// Store provides thread-safe access to the current EOP dataset.
type Store struct {
	dataset atomic.Pointer[Dataset]
	mu      sync.Mutex // serializes load operations
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if nothing has been loaded.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

// ForModel is shorthand for Get().ForModel(m).
func (s *Store) ForModel(m Model) Data {
	return s.dataset.Load().ForModel(m)
}

// SetModel replaces the table for d's model, keeping the other one.
func (s *Store) SetModel(d Data, source string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &Dataset{
		Sources:  map[Model]string{},
		LoadedAt: map[Model]time.Time{},
	}
	if cur := s.dataset.Load(); cur != nil {
		next.IAU1980 = cur.IAU1980
		next.IAU2000A = cur.IAU2000A
		for k, v := range cur.Sources {
			next.Sources[k] = v
		}
		for k, v := range cur.LoadedAt {
			next.LoadedAt[k] = v
		}
	}

	switch v := d.(type) {
	case *IAU1980:
		next.IAU1980 = v
	case *IAU2000A:
		next.IAU2000A = v
	default:
		return
	}
	next.Sources[d.Model()] = source
	next.LoadedAt[d.Model()] = at
	s.dataset.Store(next)
}

// AgeSeconds returns the age of the table for m in seconds, or -1 if it
// has not been loaded.
func (s *Store) AgeSeconds(m Model) float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	at, ok := ds.LoadedAt[m]
	if !ok {
		return -1
	}
	return time.Since(at).Seconds()
}
