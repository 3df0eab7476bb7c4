package present

import (
	"sort"

	"sheetsync/internal/record"
)

// Selection is the set of record ids picked for a bulk operation. It is
// kept over the whole collection, so ids outside the current filter stay
// selected when the search term changes.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add selects id.
func (s *Selection) Add(id string) {
	if id = record.CanonicalID(id); id != "" {
		s.ids[id] = struct{}{}
	}
}

// Remove deselects id.
func (s *Selection) Remove(id string) {
	delete(s.ids, record.CanonicalID(id))
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[record.CanonicalID(id)]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// SelectAll selects every record of view, normally the filtered list.
func (s *Selection) SelectAll(view record.Collection) {
	for _, r := range view {
		s.Add(r.ID)
	}
}

// DeselectAll deselects every record of view. Ids outside view are kept.
func (s *Selection) DeselectAll(view record.Collection) {
	for _, r := range view {
		s.Remove(r.ID)
	}
}

// AllSelected reports whether every record of a non-empty view is selected.
func (s *Selection) AllSelected(view record.Collection) bool {
	if len(view) == 0 {
		return false
	}
	for _, r := range view {
		if !s.Has(r.ID) {
			return false
		}
	}
	return true
}

// IDs returns the selected ids, sorted.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pick returns the selected records of c in collection order.
func (s *Selection) Pick(c record.Collection) record.Collection {
	out := make(record.Collection, 0, len(s.ids))
	for _, r := range c {
		if s.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// Prune drops ids that no longer exist in c and returns how many went.
func (s *Selection) Prune(c record.Collection) int {
	live := make(map[string]bool, len(c))
	for _, r := range c {
		live[record.CanonicalID(r.ID)] = true
	}
	n := 0
	for id := range s.ids {
		if !live[id] {
			delete(s.ids, id)
			n++
		}
	}
	return n
}
