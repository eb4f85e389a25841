// Package compositor warps overlay video frames onto camera frames at the
// tracked marker location.
package compositor

import (
	"fmt"
	"image"

	"marker-overlay/pkg/geometry"
)

// Options configures compositing.
type Options struct {
	// FitToMarker maps the whole overlay frame onto the marker rectangle.
	// When false the overlay is warped in its own pixel coordinates, so only
	// the part overlapping the marker's extent lands on the marker.
	FitToMarker bool
	// MarkerSize is the normalised marker size; required with FitToMarker.
	MarkerSize image.Point
}

// Compositor blends warped overlay frames into camera frames.
type Compositor struct {
	backend Backend
	opts    Options
}

// New creates a Compositor. A nil backend selects GoBackend.
func New(backend Backend, opts Options) *Compositor {
	if backend == nil {
		backend = GoBackend{}
	}
	return &Compositor{backend: backend, opts: opts}
}

// Composite copies the overlay, warped by active, onto scene inside the
// warped coverage mask. scene is modified in place and returned. When
// detectionGood is false scene is returned untouched.
func (c *Compositor) Composite(scene, overlay *image.RGBA, active geometry.Homography, detectionGood bool) (*image.RGBA, error) {
	if !detectionGood || overlay == nil || overlay.Bounds().Empty() {
		return scene, nil
	}

	sb := scene.Bounds()
	size := image.Pt(sb.Dx(), sb.Dy())
	ob := overlay.Bounds()

	maskPoly := geometry.NewRect(0, 0, float64(ob.Dx()), float64(ob.Dy())).Corners()
	overlayH := active
	if c.opts.FitToMarker && c.opts.MarkerSize.X > 0 && c.opts.MarkerSize.Y > 0 {
		maskPoly = geometry.NewRect(0, 0, float64(c.opts.MarkerSize.X), float64(c.opts.MarkerSize.Y)).Corners()
		overlayH = active.Compose(geometry.ScaleHomography(
			float64(c.opts.MarkerSize.X)/float64(ob.Dx()),
			float64(c.opts.MarkerSize.Y)/float64(ob.Dy()),
		))
	}

	// Fresh mask every frame, sized to the current scene.
	mask := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	if err := c.backend.FillConvexPoly(mask, maskPoly, 255); err != nil {
		return scene, fmt.Errorf("fill coverage mask: %w", err)
	}
	warpedMask, err := c.backend.WarpGray(mask, active, size)
	if err != nil {
		return scene, fmt.Errorf("warp coverage mask: %w", err)
	}

	warped, err := c.backend.WarpRGBA(overlay, overlayH, size)
	if err != nil {
		return scene, fmt.Errorf("warp overlay: %w", err)
	}

	copyMasked(scene, warped, warpedMask)
	return scene, nil
}

// copyMasked copies src pixels into dst wherever mask is non-zero.
func copyMasked(dst, src *image.RGBA, mask *image.Gray) {
	db := dst.Bounds()
	for y := 0; y < db.Dy(); y++ {
		for x := 0; x < db.Dx(); x++ {
			if mask.Pix[y*mask.Stride+x] == 0 {
				continue
			}
			d := dst.PixOffset(db.Min.X+x, db.Min.Y+y)
			s := y*src.Stride + x*4
			copy(dst.Pix[d:d+4], src.Pix[s:s+4])
		}
	}
}
