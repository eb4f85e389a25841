package image

import (
	"image"

	"golang.org/x/image/draw"
)

// ScaleRGBA resizes a frame by factor. A factor of 1 returns src unchanged.
func ScaleRGBA(src *image.RGBA, factor float64) *image.RGBA {
	if factor == 1 || factor <= 0 {
		return src
	}
	b := src.Bounds()
	w := int(float64(b.Dx())*factor + 0.5)
	h := int(float64(b.Dy())*factor + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// CloneRGBA returns a deep copy of src with its origin at (0, 0).
func CloneRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
