package stats

import (
	"sort"
	"time"
)

// Pure aggregation primitives. All of them operate on events already
// loaded in memory, take their window explicitly, and share no state, so
// the compositions in engine.go may evaluate them in any order.

// FilterByTime keeps the items whose timestamp, as reported by at, falls
// inside the window.
func FilterByTime[T any](items []T, w Window, at func(T) time.Time) []T {
	if w.Empty() {
		return nil
	}
	var out []T
	for _, it := range items {
		if w.Contains(at(it)) {
			out = append(out, it)
		}
	}
	return out
}

// CountInWindow is the cardinality of the filtered set.
func CountInWindow[T any](items []T, w Window, at func(T) time.Time) int {
	n := 0
	for _, it := range items {
		if w.Contains(at(it)) {
			n++
		}
	}
	return n
}

// MostActiveHour buckets timestamps by hour of day (0-23) and returns
// the fullest bucket. Ties break toward the lowest hour. An empty input
// yields nil, never a default hour.
func MostActiveHour(times []time.Time) *int {
	var counts [24]int
	for _, t := range times {
		counts[t.UTC().Hour()]++
	}
	best, bestCount := 0, 0
	for h, c := range counts {
		if c > bestCount {
			best, bestCount = h, c
		}
	}
	if bestCount == 0 {
		return nil
	}
	return &best
}

// Mode returns the most frequent key. Ties break toward the
// lexicographically smallest key. An empty input yields nil.
func Mode(keys []string) *string {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}
	var best string
	bestCount := 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	if bestCount == 0 {
		return nil
	}
	return &best
}

// Ranked is one entry of a top-K ranking.
type Ranked struct {
	Key   string
	Count int
}

// TopK ranks the counted keys by count descending, identifier ascending
// on equal counts, truncated to limit. limit = 0 yields an empty result;
// a limit beyond the number of keys returns them all.
func TopK(counts map[string]int, limit int) []Ranked {
	if limit <= 0 || len(counts) == 0 {
		return nil
	}
	ranked := make([]Ranked, 0, len(counts))
	for k, c := range counts {
		ranked = append(ranked, Ranked{Key: k, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Key < ranked[j].Key
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// CompletedDuration sums the durations of spans that started inside the
// window and have a recorded end. Ongoing spans are excluded entirely.
func CompletedDuration[T any](spans []T, w Window, start func(T) time.Time, end func(T) *time.Time) time.Duration {
	var total time.Duration
	for _, sp := range spans {
		e := end(sp)
		if e == nil || !w.Contains(start(sp)) {
			continue
		}
		if d := e.Sub(start(sp)); d > 0 {
			total += d
		}
	}
	return total
}

// DurationIncludingOngoing sums the durations of spans that started
// inside the window, clamping spans without a recorded end at the
// evaluation time. Callers must report this figure separately from
// CompletedDuration; the two are different numbers with different
// meanings.
func DurationIncludingOngoing[T any](spans []T, w Window, now time.Time, start func(T) time.Time, end func(T) *time.Time) time.Duration {
	var total time.Duration
	for _, sp := range spans {
		if !w.Contains(start(sp)) {
			continue
		}
		clamped := now
		if e := end(sp); e != nil {
			clamped = *e
		}
		if d := clamped.Sub(start(sp)); d > 0 {
			total += d
		}
	}
	return total
}
