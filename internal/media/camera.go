// Package media connects the tracker to OpenCV capture devices, video
// files and windows.
package media

import (
	"errors"
	"fmt"
	"image"

	cvimage "marker-overlay/internal/image"

	"gocv.io/x/gocv"
)

var errNoFrame = errors.New("no frame")

// Camera reads frames from a capture device.
type Camera struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	scale   float64
}

// OpenCamera opens the capture device with the given index. Frames are
// resized by scale before they are returned.
func OpenCamera(device int, scale float64) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open camera %d: device not available", device)
	}
	return &Camera{capture: capture, mat: gocv.NewMat(), scale: scale}, nil
}

// Read grabs the next frame.
func (c *Camera) Read() (*image.RGBA, error) {
	if ok := c.capture.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, errNoFrame
	}
	img, err := cvimage.MatToRGBA(c.mat)
	if err != nil {
		return nil, err
	}
	return cvimage.ScaleRGBA(img, c.scale), nil
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mat.Close()
	return c.capture.Close()
}
