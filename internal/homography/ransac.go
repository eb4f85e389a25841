// Package homography fits a planar projective transform to noisy point
// correspondences.
package homography

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"marker-overlay/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// RANSAC defaults, matching OpenCV's findHomography.
const (
	DefaultReprojectionThreshold = 3.0
	DefaultMaxIterations         = 2000
	DefaultConfidence            = 0.995
	MinPoints                    = 4
)

var (
	// ErrTooFewPoints is returned for fewer than four correspondences.
	ErrTooFewPoints = errors.New("need at least 4 point pairs")
	// ErrNoConsensus is returned when no model gathers enough inliers.
	ErrNoConsensus = errors.New("RANSAC failed to find enough inliers")
)

// Params configures the RANSAC search.
type Params struct {
	ReprojectionThreshold float64 // max reprojection error in pixels for an inlier
	MaxIterations         int
	Confidence            float64 // stop early once this probability of an outlier-free sample is reached
	MinInliers            int
	Seed                  int64
}

// DefaultParams returns the default RANSAC parameters.
func DefaultParams() Params {
	return Params{
		ReprojectionThreshold: DefaultReprojectionThreshold,
		MaxIterations:         DefaultMaxIterations,
		Confidence:            DefaultConfidence,
		MinInliers:            MinPoints,
		Seed:                  1,
	}
}

// Result is a fitted transform with the indices of its inliers.
type Result struct {
	H          geometry.Homography
	Inliers    []int
	Iterations int
}

// Estimator fits homographies with RANSAC. It owns a seeded random source,
// so results are repeatable for a given sequence of calls.
type Estimator struct {
	params Params
	rng    *rand.Rand
}

// NewEstimator creates an Estimator.
func NewEstimator(params Params) *Estimator {
	if params.ReprojectionThreshold <= 0 {
		params.ReprojectionThreshold = DefaultReprojectionThreshold
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultMaxIterations
	}
	if params.Confidence <= 0 || params.Confidence >= 1 {
		params.Confidence = DefaultConfidence
	}
	if params.MinInliers < MinPoints {
		params.MinInliers = MinPoints
	}
	return &Estimator{params: params, rng: rand.New(rand.NewSource(params.Seed))}
}

// Params returns the effective parameters.
func (e *Estimator) Params() Params {
	return e.params
}

// Estimate fits a transform mapping srcPoints onto dstPoints.
func (e *Estimator) Estimate(srcPoints, dstPoints []geometry.Point2D) (Result, error) {
	if len(srcPoints) != len(dstPoints) {
		return Result{}, fmt.Errorf("point count mismatch: %d vs %d", len(srcPoints), len(dstPoints))
	}
	if len(srcPoints) < MinPoints {
		return Result{}, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(srcPoints))
	}
	return e.ransac(srcPoints, dstPoints)
}

func (e *Estimator) ransac(srcPoints, dstPoints []geometry.Point2D) (Result, error) {
	n := len(srcPoints)
	threshold := e.params.ReprojectionThreshold
	maxIter := e.params.MaxIterations

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sample := make([]geometry.Point2D, MinPoints)
	target := make([]geometry.Point2D, MinPoints)

	var bestInliers []int
	var bestTransform geometry.Homography
	iter := 0

	for ; iter < maxIter; iter++ {
		// Partial Fisher-Yates: the first four entries become the sample.
		for i := 0; i < MinPoints; i++ {
			j := i + e.rng.Intn(n-i)
			indices[i], indices[j] = indices[j], indices[i]
			sample[i] = srcPoints[indices[i]]
			target[i] = dstPoints[indices[i]]
		}

		if degenerateSample(sample) || degenerateSample(target) {
			continue
		}

		transform, err := computeHomographyDLT(sample, target)
		if err != nil {
			continue
		}

		inliers := findInliers(transform, srcPoints, dstPoints, threshold)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestTransform = transform
			maxIter = min(maxIter, requiredIterations(len(inliers), n, e.params.Confidence))
		}
	}

	if len(bestInliers) < e.params.MinInliers {
		return Result{Iterations: iter}, ErrNoConsensus
	}

	// Recompute transform using all inliers
	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = srcPoints[idx]
		inlierDst[i] = dstPoints[idx]
	}

	result := Result{H: bestTransform.Normalized(), Inliers: bestInliers, Iterations: iter}
	refined, err := computeHomographyDLT(inlierSrc, inlierDst)
	if err == nil {
		refinedInliers := findInliers(refined, srcPoints, dstPoints, threshold)
		if len(refinedInliers) >= len(bestInliers) {
			result.H = refined.Normalized()
			result.Inliers = refinedInliers
		}
	}

	if !result.H.IsFinite() {
		return Result{Iterations: iter}, ErrNoConsensus
	}
	return result, nil
}

// requiredIterations returns how many samples are needed to draw one
// outlier-free sample with the given confidence.
func requiredIterations(inliers, total int, confidence float64) int {
	w := float64(inliers) / float64(total)
	pOutlierSample := 1 - math.Pow(w, MinPoints)
	if pOutlierSample <= 0 {
		return 0
	}
	if pOutlierSample >= 1 {
		return math.MaxInt32
	}
	k := math.Log(1-confidence) / math.Log(pOutlierSample)
	if k > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Ceil(k))
}

// findInliers returns the indices whose reprojection error is below threshold.
func findInliers(h geometry.Homography, srcPoints, dstPoints []geometry.Point2D, threshold float64) []int {
	var inliers []int
	for i := range srcPoints {
		projected, ok := h.Apply(srcPoints[i])
		if !ok {
			continue
		}
		if projected.Distance(dstPoints[i]) < threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// degenerateSample reports whether any three of the four sample points are
// collinear.
func degenerateSample(pts []geometry.Point2D) bool {
	const tol = 1e-3
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				if geometry.Collinear(pts[i], pts[j], pts[k], tol) {
					return true
				}
			}
		}
	}
	return false
}

// computeHomographyDLT solves for the transform with the normalised direct
// linear transform. Four pairs give the exact solution, more pairs the
// algebraic least-squares fit.
func computeHomographyDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n < MinPoints || len(dst) != n {
		return geometry.Homography{}, ErrTooFewPoints
	}

	srcN, srcT, ok := normalizePoints(src)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate source points")
	}
	dstN, dstT, ok := normalizePoints(dst)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate destination points")
	}

	// Each pair contributes two rows of A*h = 0.
	A := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y

		A.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		A.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFullV) {
		return geometry.Homography{}, fmt.Errorf("SVD failed to converge")
	}
	var V mat.Dense
	svd.VTo(&V)

	// The solution is the right singular vector of the smallest singular value.
	var hn geometry.Homography
	for k := 0; k < 9; k++ {
		hn[k/3][k%3] = V.At(k, 8)
	}

	dstInv, ok := dstT.Inverse()
	if !ok {
		return geometry.Homography{}, fmt.Errorf("singular normalisation")
	}
	h := dstInv.Compose(hn).Compose(srcT)
	if math.Abs(h[2][2]) < 1e-12 || !h.IsFinite() {
		return geometry.Homography{}, fmt.Errorf("degenerate solution")
	}
	return h.Normalized(), nil
}

// normalizePoints moves the centroid to the origin and scales the points so
// their mean distance from it is sqrt(2). It returns the normalised points
// and the similarity transform applied.
func normalizePoints(pts []geometry.Point2D) ([]geometry.Point2D, geometry.Homography, bool) {
	c := geometry.Centroid(pts)
	var meanDist float64
	for _, p := range pts {
		meanDist += p.Distance(c)
	}
	meanDist /= float64(len(pts))
	if meanDist < 1e-12 {
		return nil, geometry.Homography{}, false
	}

	s := math.Sqrt2 / meanDist
	T := geometry.Homography{
		{s, 0, -s * c.X},
		{0, s, -s * c.Y},
		{0, 0, 1},
	}
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = geometry.Point2D{X: s * (p.X - c.X), Y: s * (p.Y - c.Y)}
	}
	return out, T, true
}

// CalculateReprojectionError returns the mean distance between the projected
// source points and their destinations.
func CalculateReprojectionError(srcPoints, dstPoints []geometry.Point2D, h geometry.Homography) float64 {
	if len(srcPoints) != len(dstPoints) || len(srcPoints) == 0 {
		return math.Inf(1)
	}

	var totalError float64
	for i := range srcPoints {
		projected, ok := h.Apply(srcPoints[i])
		if !ok {
			return math.Inf(1)
		}
		totalError += projected.Distance(dstPoints[i])
	}

	return totalError / float64(len(srcPoints))
}
