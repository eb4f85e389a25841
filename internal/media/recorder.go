package media

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Recorder writes display frames to a video file. The writer is created on
// the first frame so it can take that frame's size.
type Recorder struct {
	path   string
	fps    float64
	codec  string
	writer *gocv.VideoWriter
	frames int
}

// NewRecorder prepares a recorder for path. Nothing is written until the
// first frame arrives.
func NewRecorder(path string, fps float64) *Recorder {
	return &Recorder{path: path, fps: fps, codec: "MJPG"}
}

// Write appends one BGR frame.
func (r *Recorder) Write(frame gocv.Mat) error {
	if r.writer == nil {
		w, err := gocv.VideoWriterFile(r.path, r.codec, r.fps, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("open recording %s: %w", r.path, err)
		}
		r.writer = w
	}
	if err := r.writer.Write(frame); err != nil {
		return fmt.Errorf("write recording frame %d: %w", r.frames, err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int { return r.frames }

// Close finalises the file.
func (r *Recorder) Close() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}
