package geometry

import "math"

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int

	for i := 0; i < n; i++ {
		cross := crossProduct(
			polygon[i],
			polygon[(i+1)%n],
			polygon[(i+2)%n],
		)

		if cross != 0 {
			currentSign := 1
			if cross < 0 {
				currentSign = -1
			}

			if sign == 0 {
				sign = currentSign
			} else if currentSign != sign {
				return false
			}
		}
	}

	return sign != 0
}

// ContainsConvex tests if a point lies inside or on the boundary of a convex
// polygon given in either winding order.
func ContainsConvex(polygon []Point2D, p Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var pos, neg bool
	for i := 0; i < n; i++ {
		cross := crossProduct(polygon[i], polygon[(i+1)%n], p)
		if cross > 1e-9 {
			pos = true
		} else if cross < -1e-9 {
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	return true
}

// Collinear reports whether the triangle abc has an area below tol,
// measured relative to its longest side.
func Collinear(a, b, c Point2D, tol float64) bool {
	longest := math.Max(math.Max(distSq(a, b), distSq(b, c)), distSq(a, c))
	if longest == 0 {
		return true
	}
	return math.Abs(crossProduct(a, b, c)) <= tol*longest
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// distSq computes the squared distance between two points.
func distSq(a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}
