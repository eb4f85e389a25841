package features

import (
	"errors"
	"fmt"
	"image"
	"strings"

	cvimage "marker-overlay/internal/image"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// ErrEmptyImage is returned when extraction is asked to run on an image with
// no pixels.
var ErrEmptyImage = errors.New("cannot extract features from an empty image")

// Extractor produces keypoints and descriptors for a grayscale image. The
// same extractor is used for the marker and for every frame.
type Extractor interface {
	Extract(img *image.Gray) (Features, error)
}

// Detector names an OpenCV feature detector.
type Detector string

const (
	DetectorSURF Detector = "surf"
	DetectorSIFT Detector = "sift"
	DetectorORB  Detector = "orb"
)

// DefaultSURFThreshold is the SURF hessian threshold used when none is set.
const DefaultSURFThreshold = 300

// DefaultThreshold returns the threshold a zero setting resolves to: the
// SURF hessian default, and no response filter for SIFT and ORB.
func DefaultThreshold(d Detector) float64 {
	if d == DetectorSURF {
		return DefaultSURFThreshold
	}
	return 0
}

// ParseDetector maps a configuration value to a Detector.
func ParseDetector(name string) (Detector, error) {
	switch d := Detector(strings.ToLower(strings.TrimSpace(name))); d {
	case DetectorSURF, DetectorSIFT, DetectorORB:
		return d, nil
	default:
		return "", fmt.Errorf("unknown detector %q", name)
	}
}

// detectAndComputer is satisfied by the gocv detector types.
type detectAndComputer interface {
	DetectAndCompute(src gocv.Mat, mask gocv.Mat) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// CVExtractor runs an OpenCV detector. Threshold is the strength threshold:
// the hessian threshold for SURF, and a minimum keypoint response for SIFT
// and ORB.
type CVExtractor struct {
	detector  Detector
	threshold float64
	impl      detectAndComputer
	mask      gocv.Mat
}

// NewCVExtractor creates an extractor. A threshold <= 0 selects
// DefaultThreshold for the detector. Call Close to release the detector.
func NewCVExtractor(detector Detector, threshold float64) (*CVExtractor, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold(detector)
	}
	var impl detectAndComputer
	switch detector {
	case DetectorSURF:
		surf := contrib.NewSURFWithParams(threshold, 4, 3, false, false)
		impl = &surf
	case DetectorSIFT:
		sift := gocv.NewSIFT()
		impl = &sift
	case DetectorORB:
		orb := gocv.NewORB()
		impl = &orb
	default:
		return nil, fmt.Errorf("unknown detector %q", detector)
	}
	return &CVExtractor{
		detector:  detector,
		threshold: threshold,
		impl:      impl,
		mask:      gocv.NewMat(),
	}, nil
}

// Extract detects keypoints and computes their descriptors.
func (e *CVExtractor) Extract(img *image.Gray) (Features, error) {
	if img == nil || img.Bounds().Empty() {
		return Features{}, ErrEmptyImage
	}

	mat, err := cvimage.GrayToMat(img)
	if err != nil {
		return Features{}, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	kps, des := e.impl.DetectAndCompute(mat, e.mask)
	defer des.Close()

	norm := NormL2
	if e.detector == DetectorORB {
		norm = NormHamming
	}

	out := Features{Descriptors: DescriptorSet{Norm: norm}}
	if des.Empty() || len(kps) == 0 {
		return out, nil
	}

	// SURF applies the threshold inside the detector.
	applyResponse := e.detector != DetectorSURF && e.threshold > 0
	cols := des.Cols()
	for i, kp := range kps {
		if i >= des.Rows() {
			break
		}
		if applyResponse && kp.Response < e.threshold {
			continue
		}
		vec := make([]float32, cols)
		for c := 0; c < cols; c++ {
			if norm == NormHamming {
				vec[c] = float32(des.GetUCharAt(i, c))
			} else {
				vec[c] = des.GetFloatAt(i, c)
			}
		}
		out.Keypoints = append(out.Keypoints, Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		})
		out.Descriptors.Vectors = append(out.Descriptors.Vectors, vec)
	}
	return out, nil
}

// Threshold returns the effective threshold.
func (e *CVExtractor) Threshold() float64 {
	return e.threshold
}

// Detector returns the configured detector.
func (e *CVExtractor) Detector() Detector {
	return e.detector
}

// Close releases the OpenCV resources.
func (e *CVExtractor) Close() error {
	e.mask.Close()
	return e.impl.Close()
}
