// Package matching pairs marker descriptors with frame descriptors and keeps
// the pairings that are close to the best one.
package matching

import (
	"errors"
	"math"

	"marker-overlay/internal/features"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// ErrEmptyDescriptors is returned when either descriptor set is empty.
var ErrEmptyDescriptors = errors.New("cannot match an empty descriptor set")

// Match pairs a query (marker) descriptor with its nearest train (frame)
// descriptor.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Matcher returns exactly one match per query descriptor. Several query
// descriptors may share the same train descriptor.
type Matcher interface {
	Match(query, train features.DescriptorSet) ([]Match, error)
}

// NewMatcher returns the matcher suited to norm: a k-d tree for float
// descriptors and a linear scan for binary ones.
func NewMatcher(norm features.Norm) Matcher {
	if norm == features.NormHamming {
		return BruteForceMatcher{}
	}
	return KDTreeMatcher{}
}

// BruteForceMatcher compares every query descriptor with every train
// descriptor. Ties resolve to the lowest train index.
type BruteForceMatcher struct{}

// Match implements Matcher.
func (BruteForceMatcher) Match(query, train features.DescriptorSet) ([]Match, error) {
	if query.Len() == 0 || train.Len() == 0 {
		return nil, ErrEmptyDescriptors
	}

	matches := make([]Match, query.Len())
	for qi, q := range query.Vectors {
		best := Match{QueryIdx: qi, TrainIdx: -1, Distance: math.Inf(1)}
		for ti, tv := range train.Vectors {
			d := features.Distance(query.Norm, q, tv)
			if d < best.Distance {
				best.TrainIdx = ti
				best.Distance = d
			}
		}
		matches[qi] = best
	}
	return matches, nil
}

// KDTreeMatcher searches a k-d tree built over the train descriptors using
// Euclidean distance.
type KDTreeMatcher struct{}

// Match implements Matcher.
func (KDTreeMatcher) Match(query, train features.DescriptorSet) ([]Match, error) {
	if query.Len() == 0 || train.Len() == 0 {
		return nil, ErrEmptyDescriptors
	}

	pts := make(descPoints, train.Len())
	for i, v := range train.Vectors {
		pts[i] = descPoint{vec: toFloat64(v), idx: i}
	}
	tree := kdtree.New(pts, false)

	matches := make([]Match, query.Len())
	for qi, q := range query.Vectors {
		nearest, distSq := tree.Nearest(descPoint{vec: toFloat64(q), idx: -1})
		m := Match{QueryIdx: qi, TrainIdx: -1, Distance: math.Inf(1)}
		if p, ok := nearest.(descPoint); ok {
			m.TrainIdx = p.idx
			m.Distance = math.Sqrt(distSq)
		}
		matches[qi] = m
	}
	return matches, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// descPoint is a descriptor stored in the k-d tree together with its index
// in the train set.
type descPoint struct {
	vec []float64
	idx int
}

func (p descPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(descPoint)
	return p.vec[d] - q.vec[d]
}

func (p descPoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance, as kdtree expects.
func (p descPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(descPoint)
	var sum float64
	for i := range p.vec {
		d := p.vec[i] - q.vec[i]
		sum += d * d
	}
	return sum
}

type descPoints []descPoint

func (p descPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p descPoints) Len() int                              { return len(p) }
func (p descPoints) Pivot(d kdtree.Dim) int                { return descPlane{Dim: d, descPoints: p}.Pivot() }
func (p descPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// descPlane sorts descPoints along one dimension for tree construction.
type descPlane struct {
	kdtree.Dim
	descPoints
}

func (p descPlane) Less(i, j int) bool {
	return p.descPoints[i].vec[p.Dim] < p.descPoints[j].vec[p.Dim]
}
func (p descPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p descPlane) Slice(start, end int) kdtree.SortSlicer {
	p.descPoints = p.descPoints[start:end]
	return p
}
func (p descPlane) Swap(i, j int) {
	p.descPoints[i], p.descPoints[j] = p.descPoints[j], p.descPoints[i]
}
