// Package features detects keypoints and computes descriptors for the marker
// and for every camera frame.
package features

import (
	"math"
	"math/bits"

	"marker-overlay/pkg/geometry"
)

// Norm selects the distance metric used to compare descriptors.
type Norm int

const (
	NormL2      Norm = iota // float descriptors (SURF, SIFT)
	NormHamming             // binary descriptors (ORB), one byte per element
)

func (n Norm) String() string {
	switch n {
	case NormL2:
		return "L2"
	case NormHamming:
		return "Hamming"
	default:
		return "Unknown"
	}
}

// Keypoint is a salient image location with the detector's metadata.
type Keypoint struct {
	X        float64
	Y        float64
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Point returns the keypoint location.
func (k Keypoint) Point() geometry.Point2D {
	return geometry.Point2D{X: k.X, Y: k.Y}
}

// DescriptorSet holds one fixed-length vector per keypoint. Binary
// descriptors store each byte as a float32 holding 0..255.
type DescriptorSet struct {
	Norm    Norm
	Vectors [][]float32
}

// Len returns the number of descriptors.
func (d DescriptorSet) Len() int {
	return len(d.Vectors)
}

// Distance compares two descriptors under norm.
func Distance(norm Norm, a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	switch norm {
	case NormHamming:
		var d int
		for i := 0; i < n; i++ {
			d += bits.OnesCount8(uint8(a[i]) ^ uint8(b[i]))
		}
		return float64(d)
	default:
		var sum float64
		for i := 0; i < n; i++ {
			diff := float64(a[i]) - float64(b[i])
			sum += diff * diff
		}
		return math.Sqrt(sum)
	}
}

// Features is the extractor output for one image.
type Features struct {
	Keypoints   []Keypoint
	Descriptors DescriptorSet
}

// Len returns the number of keypoints.
func (f Features) Len() int {
	return len(f.Keypoints)
}

// Empty reports whether no descriptors were produced.
func (f Features) Empty() bool {
	return f.Descriptors.Len() == 0
}

// Points returns the locations of the keypoints at the given indices.
func (f Features) Points(indices []int) []geometry.Point2D {
	pts := make([]geometry.Point2D, len(indices))
	for i, idx := range indices {
		pts[i] = f.Keypoints[idx].Point()
	}
	return pts
}
