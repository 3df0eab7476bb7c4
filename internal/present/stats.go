package present

import (
	"sort"
	"time"

	"sheetsync/internal/record"
)

// topDays and recentCount mirror the dashboard: five busiest days and the
// five newest records.
const (
	topDays     = 5
	recentCount = 5
)

// DayCount is the number of records scheduled on one day.
type DayCount struct {
	Day     time.Time // midnight in the stats location
	Count   int
	Percent int // share of all records, rounded
}

// Stats summarises a collection for the dashboard.
type Stats struct {
	Total      int
	Scheduled  int        // records whose date field parsed
	ByDay      []DayCount // all days, busiest first, ties by date
	TopDays    []DayCount
	Recent     record.Collection
	Upcoming   int // scheduled at or after now
	Unassigned int // no parseable date
}

// ComputeStats summarises c. Dates are read from the kind's DateField and
// bucketed by calendar day in loc. Recent holds the first records of c,
// which the store returns newest first.
func ComputeStats(c record.Collection, kind record.Kind, now time.Time, loc *time.Location) Stats {
	st := Stats{Total: len(c)}

	counts := map[time.Time]int{}
	if kind.DateField != "" {
		for _, r := range c {
			t, ok := record.ParseDateTime(r.Get(kind.DateField), loc)
			if !ok {
				st.Unassigned++
				continue
			}
			st.Scheduled++
			if !t.Before(now) {
				st.Upcoming++
			}
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			counts[day]++
		}
	} else {
		st.Unassigned = len(c)
	}

	for day, n := range counts {
		st.ByDay = append(st.ByDay, DayCount{Day: day, Count: n, Percent: percent(n, st.Total)})
	}
	sort.Slice(st.ByDay, func(i, j int) bool {
		if st.ByDay[i].Count != st.ByDay[j].Count {
			return st.ByDay[i].Count > st.ByDay[j].Count
		}
		return st.ByDay[i].Day.Before(st.ByDay[j].Day)
	})
	st.TopDays = st.ByDay[:min(topDays, len(st.ByDay))]
	st.Recent = c[:min(recentCount, len(c))].Clone()
	return st
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return (n*100 + total/2) / total
}
