// Package image provides marker loading, frame conversion, and the bridge
// between Go images and OpenCV matrices.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/gift"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned when a decoded image has no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// LoadReference decodes the marker image at path and normalises it to a
// width x height grayscale image.
func LoadReference(path string, width, height int) (*image.Gray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open marker: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode marker: %w", err)
	}

	return NormalizeReference(img, width, height)
}

// NormalizeReference converts img to grayscale and resizes it to
// width x height.
func NormalizeReference(img image.Image, width, height int) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid marker size %dx%d", width, height)
	}

	g := gift.New(
		gift.Grayscale(),
		gift.Resize(width, height, gift.LinearResampling),
	)
	dst := image.NewGray(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst, nil
}

// ToGray converts a frame to grayscale for feature extraction.
func ToGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	g := gift.New(gift.Grayscale())
	dst := image.NewGray(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
