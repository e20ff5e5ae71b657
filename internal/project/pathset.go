package project

import "slices"

// PathSet is an ordered list of paths that never holds the same path twice.
// Adding a path that is already present keeps its first position.
type PathSet struct {
	items []string
	seen  map[string]struct{}
}

func NewPathSet(paths ...string) *PathSet {
	s := &PathSet{seen: make(map[string]struct{}, len(paths))}
	s.Add(paths...)
	return s
}

// Add appends every path not already in the set
func (s *PathSet) Add(paths ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, p := range paths {
		if _, ok := s.seen[p]; ok {
			continue
		}
		s.seen[p] = struct{}{}
		s.items = append(s.items, p)
	}
}

func (s *PathSet) Contains(path string) bool {
	_, ok := s.seen[path]
	return ok
}

func (s *PathSet) Len() int { return len(s.items) }

// Paths returns a copy of the paths in insertion order
func (s *PathSet) Paths() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.items)
}
