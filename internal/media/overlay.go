package media

import (
	"errors"
	"fmt"
	"image"
	"strings"

	cvimage "marker-overlay/internal/image"
	"marker-overlay/internal/tracker"

	"gocv.io/x/gocv"
)

// ErrOverlayExhausted is returned by OverlayStream.Next when the overlay
// video has ended and the policy does not supply another frame.
var ErrOverlayExhausted = tracker.ErrOverlayExhausted

// Policy decides what happens at the end of the overlay video.
type Policy int

const (
	// PolicyLoop rewinds to the first frame.
	PolicyLoop Policy = iota
	// PolicyFreeze repeats the last frame.
	PolicyFreeze
	// PolicyStop reports ErrOverlayExhausted.
	PolicyStop
)

// ParsePolicy maps "loop", "freeze" and "stop" to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "loop", "":
		return PolicyLoop, nil
	case "freeze":
		return PolicyFreeze, nil
	case "stop":
		return PolicyStop, nil
	}
	return 0, fmt.Errorf("unknown end-of-stream policy %q", name)
}

func (p Policy) String() string {
	switch p {
	case PolicyLoop:
		return "loop"
	case PolicyFreeze:
		return "freeze"
	case PolicyStop:
		return "stop"
	}
	return "unknown"
}

// frameReader is a rewindable sequential frame source. Read returns
// errNoFrame at the end of the stream.
type frameReader interface {
	Read() (*image.RGBA, error)
	Rewind() error
	Close() error
}

// OverlayStream yields one overlay frame per call, applying its Policy at
// the end of the video.
type OverlayStream struct {
	reader frameReader
	policy Policy
	last   *image.RGBA
	frames int
	loops  int
}

// OpenOverlay opens a video file as an overlay stream.
func OpenOverlay(path string, policy Policy) (*OverlayStream, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open overlay %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open overlay %s: not a readable video", path)
	}
	return newOverlayStream(&videoReader{capture: capture, mat: gocv.NewMat()}, policy), nil
}

func newOverlayStream(r frameReader, policy Policy) *OverlayStream {
	return &OverlayStream{reader: r, policy: policy}
}

// Next returns the next overlay frame.
func (s *OverlayStream) Next() (*image.RGBA, error) {
	frame, err := s.reader.Read()
	if err == nil {
		s.last = frame
		s.frames++
		return frame, nil
	}
	if !errors.Is(err, errNoFrame) {
		return nil, fmt.Errorf("read overlay: %w", err)
	}

	switch s.policy {
	case PolicyLoop:
		if err := s.reader.Rewind(); err != nil {
			return nil, fmt.Errorf("rewind overlay: %w", err)
		}
		frame, err := s.reader.Read()
		if err != nil {
			// Nothing to show even after rewinding.
			return nil, fmt.Errorf("%w: %w", ErrOverlayExhausted, err)
		}
		s.loops++
		s.last = frame
		s.frames++
		return frame, nil
	case PolicyFreeze:
		if s.last == nil {
			return nil, ErrOverlayExhausted
		}
		return s.last, nil
	default:
		return nil, ErrOverlayExhausted
	}
}

// Frames returns the number of distinct frames decoded so far.
func (s *OverlayStream) Frames() int { return s.frames }

// Loops returns how many times the stream was rewound.
func (s *OverlayStream) Loops() int { return s.loops }

// Close releases the underlying video.
func (s *OverlayStream) Close() error {
	return s.reader.Close()
}

type videoReader struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func (v *videoReader) Read() (*image.RGBA, error) {
	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		return nil, errNoFrame
	}
	return cvimage.MatToRGBA(v.mat)
}

func (v *videoReader) Rewind() error {
	v.capture.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

func (v *videoReader) Close() error {
	v.mat.Close()
	return v.capture.Close()
}
