package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform in row-major order.
// [h00 h01 h02]
// [h10 h11 h12]
// [h20 h21 h22]
type Homography [3][3]float64

// IdentityHomography returns the identity transform.
func IdentityHomography() Homography {
	return Homography{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// TranslationHomography returns a pure translation.
func TranslationHomography(tx, ty float64) Homography {
	return Homography{
		{1, 0, tx},
		{0, 1, ty},
		{0, 0, 1},
	}
}

// ScaleHomography returns an axis-aligned scaling about the origin.
func ScaleHomography(sx, sy float64) Homography {
	return Homography{
		{sx, 0, 0},
		{0, sy, 0},
		{0, 0, 1},
	}
}

// Apply maps a point through the transform. It returns false when the point
// maps to infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{}, false
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}, true
}

// ApplyAll maps every point. Points mapping to infinity are returned as NaN.
func (h Homography) ApplyAll(points []Point2D) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		q, ok := h.Apply(p)
		if !ok {
			q = Point2D{X: math.NaN(), Y: math.NaN()}
		}
		out[i] = q
	}
	return out
}

// Compose returns this transform composed with another (this * other), so
// other is applied first.
func (h Homography) Compose(other Homography) Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += h[r][k] * other[k][c]
			}
			out[r][c] = sum
		}
	}
	return out
}

// Det returns the determinant, expanded along the first row.
func (h Homography) Det() float64 {
	return h[0][0]*(h[1][1]*h[2][2]-h[1][2]*h[2][1]) -
		h[0][1]*(h[1][0]*h[2][2]-h[1][2]*h[2][0]) +
		h[0][2]*(h[1][0]*h[2][1]-h[1][1]*h[2][0])
}

// Inverse returns the inverse transform, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	if math.Abs(h.Det()) < 1e-12 {
		return Homography{}, false
	}
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, false
	}
	return FromDense(&inv), true
}

// Normalized scales the transform so that h22 is 1. Transforms with a
// vanishing h22 are returned unchanged.
func (h Homography) Normalized() Homography {
	s := h[2][2]
	if math.Abs(s) < 1e-12 {
		return h
	}
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = h[r][c] / s
		}
	}
	return out
}

// IsFinite reports whether every element is a finite number.
func (h Homography) IsFinite() bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.IsNaN(h[r][c]) || math.IsInf(h[r][c], 0) {
				return false
			}
		}
	}
	return true
}

// Dense returns the transform as a gonum matrix.
func (h Homography) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

// FromDense creates a Homography from a 3x3 gonum matrix.
func FromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = m.At(r, c)
		}
	}
	return h
}

// ApproxEqual reports whether both transforms, normalised, agree element-wise
// within tol.
func (h Homography) ApproxEqual(other Homography, tol float64) bool {
	a, b := h.Normalized(), other.Normalized()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(a[r][c]-b[r][c]) > tol {
				return false
			}
		}
	}
	return true
}
