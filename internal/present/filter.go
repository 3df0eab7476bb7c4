// Package present turns a record collection into what a user sees: a
// filtered and sorted list, a selection for bulk operations, a plain-text
// table and the order statistics summary. Nothing here mutates the
// collection it is given.
package present

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"sheetsync/internal/record"
)

// Filter returns the records of c whose search fields contain term,
// ignoring case. A blank term returns c unchanged. The result preserves
// the order of c.
func Filter(c record.Collection, kind record.Kind, term string) record.Collection {
	if strings.TrimSpace(term) == "" {
		return c
	}
	fold := cases.Fold()
	needle := fold.String(term)

	out := make(record.Collection, 0, len(c))
	for _, r := range c {
		for _, field := range kind.SearchFields {
			if strings.Contains(fold.String(kind.SearchValue(r, field)), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Sort returns a copy of c stably sorted by field. The pseudo-field
// "createdAt" sorts by creation time; records without one sort last.
func Sort(c record.Collection, field string, desc bool) record.Collection {
	out := make(record.Collection, len(c))
	copy(out, c)
	if field == "" {
		return out
	}

	less := func(a, b record.Record) bool {
		return strings.Compare(a.Get(field), b.Get(field)) < 0
	}
	if field == "createdAt" {
		less = func(a, b record.Record) bool {
			switch {
			case a.CreatedAt == nil:
				return false
			case b.CreatedAt == nil:
				return true
			}
			return a.CreatedAt.Before(*b.CreatedAt)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
