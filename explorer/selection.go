package explorer

import "slices"

// SelectionSet tracks the selected paths of the current listing.
type SelectionSet struct {
	paths map[string]struct{}
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{paths: make(map[string]struct{})}
}

// Toggle adds path if absent and removes it otherwise.
func (s *SelectionSet) Toggle(path string) {
	if _, ok := s.paths[path]; ok {
		delete(s.paths, path)
		return
	}
	s.paths[path] = struct{}{}
}

// SelectAll makes the set equal to the given listing paths.
func (s *SelectionSet) SelectAll(current []string) {
	s.Clear()
	for _, p := range current {
		s.paths[p] = struct{}{}
	}
}

func (s *SelectionSet) Clear() {
	clear(s.paths)
}

// Reconcile drops every selected path that is not in current.
func (s *SelectionSet) Reconcile(current []string) {
	keep := make(map[string]struct{}, len(current))
	for _, p := range current {
		keep[p] = struct{}{}
	}
	for p := range s.paths {
		if _, ok := keep[p]; !ok {
			delete(s.paths, p)
		}
	}
}

func (s *SelectionSet) Contains(path string) bool {
	_, ok := s.paths[path]
	return ok
}

func (s *SelectionSet) Len() int {
	return len(s.paths)
}

// Paths returns the selection in sorted order.
func (s *SelectionSet) Paths() []string {
	result := make([]string, 0, len(s.paths))
	for p := range s.paths {
		result = append(result, p)
	}
	slices.Sort(result)
	return result
}
