// Package ivl implements small interval-algebra helpers over half-open
// ranges, used by pkg/planner (VisibilityDependent region subtraction
// and render-range clipping). pkg/track keeps its own clip overlap test.
//
// Grounded on the merge-and-epsilon-tolerant interval logic used by
// editSilences.go in the retrieved examples pack, adapted here to
// operate on plain float64 seconds rather than frame counts.
package ivl

import "sort"

// Interval is a half-open range [Start, End).
type Interval struct {
	Start float64
	End   float64
}

// Overlaps reports whether a and b share any point: a.Start < b.End &&
// b.Start < a.End, the strict half-open overlap test from spec.md §4.4.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Merge sorts and coalesces overlapping or touching intervals.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Interval{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.Start <= last.End {
			if next.End > last.End {
				last.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// Subtract removes every interval in cut from base, returning the
// remaining visible sub-intervals in order. Used by the planner to
// turn a track's clip occupancy into visibility-adjusted intervals
// once VisibilityDependent sources have hidden some of it.
func Subtract(base []Interval, cut []Interval) []Interval {
	cut = Merge(cut)
	var out []Interval
	for _, b := range base {
		remaining := []Interval{b}
		for _, c := range cut {
			var next []Interval
			for _, r := range remaining {
				next = append(next, subtractOne(r, c)...)
			}
			remaining = next
		}
		out = append(out, remaining...)
	}
	return out
}

func subtractOne(r, c Interval) []Interval {
	if !r.Overlaps(c) {
		return []Interval{r}
	}
	var out []Interval
	if c.Start > r.Start {
		out = append(out, Interval{Start: r.Start, End: min(c.Start, r.End)})
	}
	if c.End < r.End {
		out = append(out, Interval{Start: max(c.End, r.Start), End: r.End})
	}
	return out
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
