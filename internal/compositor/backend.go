package compositor

import (
	"errors"
	"image"
	"math"

	cvimage "marker-overlay/internal/image"
	"marker-overlay/pkg/geometry"
)

// ErrSingularTransform is returned when a warp is requested with a
// non-invertible transform.
var ErrSingularTransform = errors.New("transform is not invertible")

// Backend is the raster capability the compositor needs: polygon fill and
// perspective warps into an output of a given size.
type Backend interface {
	FillConvexPoly(mask *image.Gray, poly []geometry.Point2D, value uint8) error
	WarpGray(src *image.Gray, h geometry.Homography, size image.Point) (*image.Gray, error)
	WarpRGBA(src *image.RGBA, h geometry.Homography, size image.Point) (*image.RGBA, error)
}

// GoBackend implements Backend in pure Go with bilinear sampling and a
// black constant border.
type GoBackend struct{}

// FillConvexPoly sets every pixel whose integer coordinates lie inside or on
// the polygon.
func (GoBackend) FillConvexPoly(mask *image.Gray, poly []geometry.Point2D, value uint8) error {
	if len(poly) < 3 {
		return nil
	}
	bb := geometry.BoundingBox(poly)
	b := mask.Bounds()
	x0 := max(b.Min.X, int(math.Floor(bb.X)))
	y0 := max(b.Min.Y, int(math.Floor(bb.Y)))
	x1 := min(b.Max.X-1, int(math.Ceil(bb.X+bb.Width)))
	y1 := min(b.Max.Y-1, int(math.Ceil(bb.Y+bb.Height)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if geometry.ContainsConvex(poly, geometry.Point2D{X: float64(x), Y: float64(y)}) {
				mask.Pix[mask.PixOffset(x, y)] = value
			}
		}
	}
	return nil
}

// WarpGray maps src through h into a size.X x size.Y image.
func (GoBackend) WarpGray(src *image.Gray, h geometry.Homography, size image.Point) (*image.Gray, error) {
	inv, ok := h.Inverse()
	if !ok {
		return nil, ErrSingularTransform
	}
	dst := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	b := src.Bounds()
	w, ht := b.Dx(), b.Dy()

	cvimage.ParallelRows(size.Y, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < size.X; x++ {
				s, ok := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
				if !ok || s.X < 0 || s.Y < 0 || s.X > float64(w-1) || s.Y > float64(ht-1) {
					continue
				}
				x0, x1, y0, y1, fx, fy := splitCoord(s.X, s.Y, w, ht)
				at := func(xx, yy int) float64 {
					return float64(src.Pix[src.PixOffset(b.Min.X+xx, b.Min.Y+yy)])
				}
				v := bilinear(at(x0, y0), at(x1, y0), at(x0, y1), at(x1, y1), fx, fy)
				dst.Pix[y*dst.Stride+x] = uint8(v + 0.5)
			}
		}
	})
	return dst, nil
}

// WarpRGBA maps src through h into a size.X x size.Y image.
func (GoBackend) WarpRGBA(src *image.RGBA, h geometry.Homography, size image.Point) (*image.RGBA, error) {
	inv, ok := h.Inverse()
	if !ok {
		return nil, ErrSingularTransform
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	b := src.Bounds()
	w, ht := b.Dx(), b.Dy()

	cvimage.ParallelRows(size.Y, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < size.X; x++ {
				s, ok := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
				if !ok || s.X < 0 || s.Y < 0 || s.X > float64(w-1) || s.Y > float64(ht-1) {
					continue
				}
				x0, x1, y0, y1, fx, fy := splitCoord(s.X, s.Y, w, ht)
				o00 := src.PixOffset(b.Min.X+x0, b.Min.Y+y0)
				o10 := src.PixOffset(b.Min.X+x1, b.Min.Y+y0)
				o01 := src.PixOffset(b.Min.X+x0, b.Min.Y+y1)
				o11 := src.PixOffset(b.Min.X+x1, b.Min.Y+y1)
				d := y*dst.Stride + x*4
				for c := 0; c < 4; c++ {
					v := bilinear(float64(src.Pix[o00+c]), float64(src.Pix[o10+c]),
						float64(src.Pix[o01+c]), float64(src.Pix[o11+c]), fx, fy)
					dst.Pix[d+c] = uint8(v + 0.5)
				}
			}
		}
	})
	return dst, nil
}

// splitCoord returns the neighbouring sample coordinates around (sx, sy) and
// the fractional offsets. Samples on the last row or column pair with
// themselves.
func splitCoord(sx, sy float64, w, h int) (x0, x1, y0, y1 int, fx, fy float64) {
	x0, y0 = int(sx), int(sy)
	x1, y1 = min(x0+1, w-1), min(y0+1, h-1)
	fx, fy = sx-float64(x0), sy-float64(y0)
	return x0, x1, y0, y1, fx, fy
}

func bilinear(v00, v10, v01, v11, fx, fy float64) float64 {
	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}
