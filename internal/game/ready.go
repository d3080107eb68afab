package game

// ReadySet holds the players who acknowledged the end of a round. The zero
// value is empty and ready to use.
type ReadySet struct {
	members map[string]struct{}
}

// Add inserts id and reports whether it was newly added.
func (s *ReadySet) Add(id string) bool {
	if s.members == nil {
		s.members = make(map[string]struct{})
	}
	if _, ok := s.members[id]; ok {
		return false
	}
	s.members[id] = struct{}{}
	return true
}

func (s *ReadySet) Has(id string) bool {
	_, ok := s.members[id]
	return ok
}

func (s *ReadySet) Remove(id string) {
	delete(s.members, id)
}

func (s *ReadySet) Len() int {
	return len(s.members)
}

func (s *ReadySet) Clear() {
	s.members = nil
}
