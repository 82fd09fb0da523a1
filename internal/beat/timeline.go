package beat

import (
	"cmp"
	"slices"
	"time"
)

// Segment is the interval between one onset and the next, tagged with the
// category of the onset that opens it
type Segment struct {
	Start    time.Duration
	End      time.Duration
	Category Category
}

// Duration returns End - Start
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

type onset struct {
	at       time.Duration
	category Category
}

// BuildTimeline merges the onsets of the active categories into contiguous
// segments ending at duration. No onsets yields an empty timeline.
func BuildTimeline(active []Category, onsets map[Category][]time.Duration, duration time.Duration) []Segment {
	var all []onset
	for _, c := range active {
		for _, at := range onsets[c] {
			all = append(all, onset{at: at, category: c})
		}
	}
	if len(all) == 0 {
		return []Segment{}
	}

	slices.SortStableFunc(all, func(a, b onset) int {
		return cmp.Compare(a.at, b.at)
	})

	timeline := make([]Segment, 0, len(all))
	for i := 0; i < len(all)-1; i++ {
		timeline = append(timeline, Segment{
			Start:    all[i].at,
			End:      all[i+1].at,
			Category: all[i].category,
		})
	}

	last := all[len(all)-1]
	timeline = append(timeline, Segment{
		Start:    last.at,
		End:      duration,
		Category: last.category,
	})
	return timeline
}

// CountByCategory tallies segments per opening category
func CountByCategory(timeline []Segment) map[Category]int {
	counts := make(map[Category]int)
	for _, s := range timeline {
		counts[s.Category]++
	}
	return counts
}
