package present

import (
	"sort"

	"sheetsync/internal/record"
)

func sortedKeys(f record.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
