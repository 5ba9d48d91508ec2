package draft

import (
	"sort"
	"sync"
)

// InFlight is the set of identifiers with an operation currently running,
// e.g. row txids being imported. The zero value is ready to use.
type InFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// Add marks id as in flight. It returns false when id was already present.
func (s *InFlight) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove clears id.
func (s *InFlight) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Has reports whether id is in flight.
func (s *InFlight) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers in flight.
func (s *InFlight) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the identifiers in sorted order.
func (s *InFlight) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
