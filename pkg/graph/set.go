package graph

// Set is an insertion-ordered set of identities keyed by NameVersion. The
// zero value is ready to use.
type Set struct {
	m     map[string]struct{}
	order []Identity
}

// Add inserts id and reports whether it was new.
func (s *Set) Add(id Identity) bool {
	if s.m == nil {
		s.m = make(map[string]struct{})
	}
	key := id.NameVersion()
	if _, ok := s.m[key]; ok {
		return false
	}
	s.m[key] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Has reports whether id is in the set.
func (s *Set) Has(id Identity) bool {
	_, ok := s.m[id.NameVersion()]
	return ok
}

// Len returns the number of identities in the set.
func (s *Set) Len() int { return len(s.order) }

// List returns the identities in insertion order.
func (s *Set) List() []Identity {
	out := make([]Identity, len(s.order))
	copy(out, s.order)
	return out
}
