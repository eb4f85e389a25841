package image

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// GrayToMat converts a grayscale image to a single-channel CV_8U Mat.
func GrayToMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	if b.Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}
	w, h := b.Dx(), b.Dy()
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf[y*w:(y+1)*w], img.Pix[start:start+w])
	}
	return matFromBytes(h, w, gocv.MatTypeCV8U, buf)
}

// RGBAToMat converts an RGBA image to a BGR Mat (OpenCV default), converting
// rows in parallel stripes.
func RGBAToMat(img *image.RGBA) (gocv.Mat, error) {
	b := img.Bounds()
	if b.Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}
	w, h := b.Dx(), b.Dy()
	buf := make([]byte, w*h*3)

	ParallelRows(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			src := img.PixOffset(b.Min.X, b.Min.Y+y)
			dst := y * w * 3
			for x := 0; x < w; x++ {
				buf[dst+0] = img.Pix[src+2] // B
				buf[dst+1] = img.Pix[src+1] // G
				buf[dst+2] = img.Pix[src+0] // R
				src += 4
				dst += 3
			}
		}
	})

	return matFromBytes(h, w, gocv.MatTypeCV8UC3, buf)
}

// MatToRGBA converts an 8-bit Mat with 1, 3 (BGR) or 4 (BGRA) channels to RGBA.
func MatToRGBA(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	h, w := mat.Rows(), mat.Cols()
	ch := mat.Channels()
	if ch != 1 && ch != 3 && ch != 4 {
		return nil, fmt.Errorf("unsupported channel count %d", ch)
	}
	data := mat.ToBytes()
	if len(data) < w*h*ch {
		return nil, fmt.Errorf("mat data too short: %d bytes for %dx%dx%d", len(data), w, h, ch)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	ParallelRows(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			src := y * w * ch
			dst := y * img.Stride
			for x := 0; x < w; x++ {
				switch ch {
				case 1:
					v := data[src]
					img.Pix[dst+0], img.Pix[dst+1], img.Pix[dst+2] = v, v, v
				default:
					img.Pix[dst+0] = data[src+2] // R
					img.Pix[dst+1] = data[src+1] // G
					img.Pix[dst+2] = data[src+0] // B
				}
				img.Pix[dst+3] = 255
				src += ch
				dst += 4
			}
		}
	})

	return img, nil
}

// MatToGray converts a single-channel CV_8U Mat to a grayscale image.
func MatToGray(mat gocv.Mat) (*image.Gray, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	if mat.Channels() != 1 {
		return nil, fmt.Errorf("expected 1 channel, got %d", mat.Channels())
	}
	h, w := mat.Rows(), mat.Cols()
	data := mat.ToBytes()
	if len(data) < w*h {
		return nil, fmt.Errorf("mat data too short: %d bytes for %dx%d", len(data), w, h)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, data[:w*h])
	return img, nil
}

// matFromBytes copies buf into a Mat owned by OpenCV so the Go slice can be
// collected independently.
func matFromBytes(rows, cols int, mt gocv.MatType, buf []byte) (gocv.Mat, error) {
	view, err := gocv.NewMatFromBytes(rows, cols, mt, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap pixel buffer: %w", err)
	}
	defer view.Close()
	return view.Clone(), nil
}

// ParallelRows splits [0, rows) into horizontal stripes, one per CPU, and
// runs fn on each stripe concurrently.
func ParallelRows(rows int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > rows {
			endY = rows
		}
		if startY >= rows {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}
