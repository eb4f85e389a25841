package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"marker-overlay/pkg/geometry"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestCompositeWithoutDetectionIsPassThrough(t *testing.T) {
	scene := solid(64, 48, red)
	scene.SetRGBA(3, 4, color.RGBA{G: 90, A: 255})
	before := append([]byte(nil), scene.Pix...)

	c := New(GoBackend{}, Options{})
	out, err := c.Composite(scene, solid(20, 20, blue), geometry.TranslationHomography(5, 5), false)
	if err != nil {
		t.Fatalf("Composite returned error: %v", err)
	}
	if out != scene {
		t.Fatal("expected the scene frame to be returned")
	}
	if !bytes.Equal(out.Pix, before) {
		t.Fatal("scene pixels changed although detection was rejected")
	}
}

func TestCompositeIdentityCopiesOverlay(t *testing.T) {
	scene := solid(50, 40, red)
	c := New(GoBackend{}, Options{})
	out, err := c.Composite(scene, solid(20, 10, blue), geometry.IdentityHomography(), true)
	if err != nil {
		t.Fatalf("Composite returned error: %v", err)
	}
	if got := out.RGBAAt(5, 5); got != blue {
		t.Fatalf("inside overlay: got %v want %v", got, blue)
	}
	if got := out.RGBAAt(30, 5); got != red {
		t.Fatalf("outside overlay: got %v want %v", got, red)
	}
	if got := out.RGBAAt(5, 30); got != red {
		t.Fatalf("below overlay: got %v want %v", got, red)
	}
}

func TestCompositeTranslationPlacesOverlay(t *testing.T) {
	scene := solid(80, 60, red)
	c := New(GoBackend{}, Options{})
	out, err := c.Composite(scene, solid(20, 10, blue), geometry.TranslationHomography(15, 12), true)
	if err != nil {
		t.Fatalf("Composite returned error: %v", err)
	}
	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{16, 13, blue},
		{33, 20, blue},
		{10, 13, red},
		{16, 30, red},
		{40, 15, red},
	}
	for _, ck := range checks {
		if got := out.RGBAAt(ck.x, ck.y); got != ck.want {
			t.Fatalf("pixel (%d,%d): got %v want %v", ck.x, ck.y, got, ck.want)
		}
	}
}

func TestCompositeFitToMarkerScalesOverlay(t *testing.T) {
	scene := solid(60, 60, red)
	c := New(GoBackend{}, Options{FitToMarker: true, MarkerSize: image.Pt(10, 10)})
	out, err := c.Composite(scene, solid(40, 40, blue), geometry.TranslationHomography(5, 5), true)
	if err != nil {
		t.Fatalf("Composite returned error: %v", err)
	}
	if got := out.RGBAAt(9, 9); got != blue {
		t.Fatalf("inside marker: got %v want %v", got, blue)
	}
	if got := out.RGBAAt(25, 25); got != red {
		t.Fatalf("outside marker: got %v want %v", got, red)
	}
}

func TestCompositeHandlesChangingSceneSize(t *testing.T) {
	c := New(nil, Options{})
	overlay := solid(8, 8, blue)
	for _, size := range []image.Point{{32, 24}, {16, 40}, {64, 64}} {
		scene := solid(size.X, size.Y, red)
		out, err := c.Composite(scene, overlay, geometry.TranslationHomography(2, 2), true)
		if err != nil {
			t.Fatalf("size %v: %v", size, err)
		}
		if out.Bounds().Size() != size {
			t.Fatalf("size %v: output bounds %v", size, out.Bounds())
		}
		if got := out.RGBAAt(4, 4); got != blue {
			t.Fatalf("size %v: got %v want %v", size, got, blue)
		}
	}
}

func TestGoBackendFillConvexPoly(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 10, 10))
	poly := geometry.NewRect(2, 3, 4, 2).Corners()
	if err := (GoBackend{}).FillConvexPoly(mask, poly, 255); err != nil {
		t.Fatalf("FillConvexPoly: %v", err)
	}
	count := 0
	for _, v := range mask.Pix {
		if v == 255 {
			count++
		}
	}
	// Inclusive bounds: x 2..6, y 3..5.
	if count != 15 {
		t.Fatalf("filled %d pixels, want 15", count)
	}
	if mask.GrayAt(1, 3).Y != 0 || mask.GrayAt(6, 5).Y != 255 {
		t.Fatal("unexpected fill boundary")
	}
}

func TestGoBackendFillClipsToMask(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 5, 5))
	poly := geometry.NewRect(-10, -10, 100, 100).Corners()
	if err := (GoBackend{}).FillConvexPoly(mask, poly, 7); err != nil {
		t.Fatalf("FillConvexPoly: %v", err)
	}
	for i, v := range mask.Pix {
		if v != 7 {
			t.Fatalf("pixel %d = %d, want 7", i, v)
		}
	}
}

func TestGoBackendWarpGrayScale(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range src.Pix {
		src.Pix[i] = 100
	}
	out, err := (GoBackend{}).WarpGray(src, geometry.ScaleHomography(2, 2), image.Pt(30, 30))
	if err != nil {
		t.Fatalf("WarpGray: %v", err)
	}
	if out.GrayAt(10, 10).Y != 100 || out.GrayAt(18, 17).Y != 100 {
		t.Fatal("expected scaled interior to keep its value")
	}
	if out.GrayAt(25, 25).Y != 0 {
		t.Fatal("expected border outside the warped source to be black")
	}
}

func TestGoBackendRejectsSingularTransform(t *testing.T) {
	singular := geometry.Homography{{1, 1, 0}, {1, 1, 0}, {0, 0, 1}}
	if _, err := (GoBackend{}).WarpRGBA(solid(4, 4, red), singular, image.Pt(4, 4)); !errors.Is(err, ErrSingularTransform) {
		t.Fatalf("expected ErrSingularTransform, got %v", err)
	}
	scene := solid(8, 8, red)
	if _, err := New(GoBackend{}, Options{}).Composite(scene, solid(4, 4, blue), singular, true); !errors.Is(err, ErrSingularTransform) {
		t.Fatalf("expected Composite to surface ErrSingularTransform, got %v", err)
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: uint8((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestBackendsAgreeOnTranslation(t *testing.T) {
	const tx, ty, ow, oh = 15, 12, 40, 30
	h := geometry.TranslationHomography(tx, ty)
	overlay := gradient(ow, oh)

	goOut, err := New(GoBackend{}, Options{}).Composite(solid(80, 60, red), overlay, h, true)
	if err != nil {
		t.Fatalf("GoBackend Composite: %v", err)
	}
	cvOut, err := New(CVBackend{}, Options{}).Composite(solid(80, 60, red), overlay, h, true)
	if err != nil {
		t.Fatalf("CVBackend Composite: %v", err)
	}

	// Rasterisers may disagree on pixels touching the outline.
	nearEdge := func(v, edge int) bool { return v >= edge-1 && v <= edge+1 }
	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			if nearEdge(x, tx) || nearEdge(x, tx+ow) || nearEdge(y, ty) || nearEdge(y, ty+oh) {
				continue
			}
			g, c := goOut.RGBAAt(x, y), cvOut.RGBAAt(x, y)
			if g != c {
				t.Fatalf("pixel (%d,%d): go %v, opencv %v", x, y, g, c)
			}
		}
	}
	if got, want := cvOut.RGBAAt(tx+5, ty+5), overlay.RGBAAt(5, 5); got != want {
		t.Fatalf("opencv overlay pixel = %v, want %v", got, want)
	}
}
