package matching

import "math"

// DefaultDistanceFactor is the multiple of the best distance a match may
// reach and still be kept.
const DefaultDistanceFactor = 3.0

// FilterResult holds the retained matches and the distance range observed.
type FilterResult struct {
	Good    []Match
	MinDist float64
	MaxDist float64
}

// Filter keeps every match whose distance is strictly below factor times the
// smallest distance. Input order is preserved.
//
// A zero smallest distance is the one exception to the strict rule: the
// limit collapses to zero and would reject everything, so distance-zero
// matches are kept instead. Binary descriptors of identical patches hit
// this case routinely.
func Filter(matches []Match, factor float64) FilterResult {
	if len(matches) == 0 {
		return FilterResult{}
	}

	minDist, maxDist := math.Inf(1), math.Inf(-1)
	for _, m := range matches {
		if m.Distance < minDist {
			minDist = m.Distance
		}
		if m.Distance > maxDist {
			maxDist = m.Distance
		}
	}

	limit := factor * minDist
	res := FilterResult{MinDist: minDist, MaxDist: maxDist}
	for _, m := range matches {
		if m.Distance < limit || (minDist == 0 && m.Distance == 0) {
			res.Good = append(res.Good, m)
		}
	}
	return res
}
