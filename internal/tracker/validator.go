package tracker

import (
	"math"

	"marker-overlay/pkg/geometry"
)

// Default determinant bounds. Both are exclusive.
const (
	DefaultMinDeterminant = 0.05
	DefaultMaxDeterminant = 200
)

// Bounds is the open interval |det| must fall in for a candidate transform
// to be accepted.
type Bounds struct {
	MinDet float64
	MaxDet float64
}

// DefaultBounds returns (0.05, 200).
func DefaultBounds() Bounds {
	return Bounds{MinDet: DefaultMinDeterminant, MaxDet: DefaultMaxDeterminant}
}

// Accepts reports whether det lies strictly inside the bounds.
func (b Bounds) Accepts(det float64) bool {
	d := math.Abs(det)
	return d > b.MinDet && d < b.MaxDet
}

// Validate returns candidate and true when its determinant is within bounds.
// Otherwise active is returned unchanged with false.
func Validate(candidate, active geometry.Homography, bounds Bounds) (geometry.Homography, bool) {
	if !candidate.IsFinite() {
		return active, false
	}
	if !bounds.Accepts(candidate.Det()) {
		return active, false
	}
	return candidate, true
}
