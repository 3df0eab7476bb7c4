package app

import (
	"sort"
	"strconv"

	"sheetsync/internal/record"
)

// sortByID orders records numerically when both ids are numbers and
// lexically otherwise.
func sortByID(c record.Collection, desc bool) record.Collection {
	out := make(record.Collection, len(c))
	copy(out, c)
	less := func(x, y string) bool {
		nx, errX := strconv.ParseFloat(x, 64)
		ny, errY := strconv.ParseFloat(y, 64)
		if errX == nil && errY == nil {
			return nx < ny
		}
		return x < y
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j].ID, out[i].ID)
		}
		return less(out[i].ID, out[j].ID)
	})
	return out
}
