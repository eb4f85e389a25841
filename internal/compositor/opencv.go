package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	cvimage "marker-overlay/internal/image"
	"marker-overlay/pkg/geometry"

	"gocv.io/x/gocv"
)

// CVBackend implements Backend with OpenCV FillPoly and WarpPerspective.
// Images cross the cgo boundary on every call.
type CVBackend struct{}

// FillConvexPoly implements Backend.
func (CVBackend) FillConvexPoly(mask *image.Gray, poly []geometry.Point2D, value uint8) error {
	if len(poly) < 3 {
		return nil
	}
	m, err := cvimage.GrayToMat(mask)
	if err != nil {
		return fmt.Errorf("convert mask: %w", err)
	}
	defer m.Close()

	pts := make([]image.Point, len(poly))
	for i, p := range poly {
		pts[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()

	gocv.FillPoly(&m, pv, color.RGBA{R: value, G: value, B: value, A: 0})

	filled, err := cvimage.MatToGray(m)
	if err != nil {
		return fmt.Errorf("convert filled mask: %w", err)
	}
	copy(mask.Pix, filled.Pix)
	return nil
}

// WarpGray implements Backend.
func (CVBackend) WarpGray(src *image.Gray, h geometry.Homography, size image.Point) (*image.Gray, error) {
	m, err := cvimage.GrayToMat(src)
	if err != nil {
		return nil, fmt.Errorf("convert source: %w", err)
	}
	defer m.Close()

	warped, err := warpMat(m, h, size)
	if err != nil {
		return nil, err
	}
	defer warped.Close()
	return cvimage.MatToGray(warped)
}

// WarpRGBA implements Backend.
func (CVBackend) WarpRGBA(src *image.RGBA, h geometry.Homography, size image.Point) (*image.RGBA, error) {
	m, err := cvimage.RGBAToMat(src)
	if err != nil {
		return nil, fmt.Errorf("convert source: %w", err)
	}
	defer m.Close()

	warped, err := warpMat(m, h, size)
	if err != nil {
		return nil, err
	}
	defer warped.Close()
	return cvimage.MatToRGBA(warped)
}

func warpMat(src gocv.Mat, h geometry.Homography, size image.Point) (gocv.Mat, error) {
	if _, ok := h.Inverse(); !ok {
		return gocv.NewMat(), ErrSingularTransform
	}
	transformMat := homographyToMat(h)
	defer transformMat.Close()

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, transformMat, size)
	return dst, nil
}

// homographyToMat creates a 3x3 CV_64F Mat. The caller owns the result.
func homographyToMat(h geometry.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}
	return m
}
