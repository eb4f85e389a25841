package media

import (
	"fmt"
	"image"
	"image/color"
	"math"

	cvimage "marker-overlay/internal/image"
	"marker-overlay/internal/tracker"

	"gocv.io/x/gocv"
)

var (
	outlineAccepted = color.RGBA{G: 255, A: 255}
	outlineRejected = color.RGBA{R: 255, A: 255}
	statsColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// WindowOptions configures a Window.
type WindowOptions struct {
	Title       string
	WaitMS      int
	DrawOutline bool
	ShowStats   bool
	Recorder    *Recorder
}

// Window shows display frames in an OpenCV window and polls the keyboard.
type Window struct {
	window *gocv.Window
	opts   WindowOptions
}

// NewWindow opens a named window.
func NewWindow(opts WindowOptions) *Window {
	if opts.WaitMS <= 0 {
		opts.WaitMS = 1
	}
	return &Window{window: gocv.NewWindow(opts.Title), opts: opts}
}

// Show renders the frame, with annotations when enabled, and forwards it to
// the recorder.
func (w *Window) Show(frame tracker.DisplayFrame) error {
	mat, err := cvimage.RGBAToMat(frame.Image)
	if err != nil {
		return err
	}
	defer mat.Close()

	if w.opts.DrawOutline {
		drawOutline(&mat, frame.Result)
	}
	if w.opts.ShowStats {
		for i, line := range statsLines(frame.Result) {
			gocv.PutText(&mat, line, image.Pt(10, 24+22*i), gocv.FontHersheySimplex, 0.6, statsColor, 1)
		}
	}

	w.window.IMShow(mat)
	if w.opts.Recorder != nil {
		if err := w.opts.Recorder.Write(mat); err != nil {
			return err
		}
	}
	return nil
}

// PollKey waits up to the configured delay and returns the key code, or -1.
func (w *Window) PollKey() int {
	return w.window.WaitKey(w.opts.WaitMS)
}

// Close closes the window and the recorder.
func (w *Window) Close() error {
	var recErr error
	if w.opts.Recorder != nil {
		recErr = w.opts.Recorder.Close()
	}
	if err := w.window.Close(); err != nil {
		return err
	}
	return recErr
}

func drawOutline(mat *gocv.Mat, res tracker.FrameResult) {
	pts, ok := outlinePoints(res)
	if !ok {
		return
	}
	c := outlineRejected
	if res.Accepted {
		c = outlineAccepted
	}
	for i := range pts {
		gocv.Line(mat, pts[i], pts[(i+1)%len(pts)], c, 2)
	}
}

// outlinePoints rounds the projected marker corners to pixels. It reports
// false when there is no candidate or a corner is not finite.
func outlinePoints(res tracker.FrameResult) ([]image.Point, bool) {
	if !res.HasCandidate || len(res.Projected) < 3 {
		return nil, false
	}
	pts := make([]image.Point, len(res.Projected))
	for i, p := range res.Projected {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, false
		}
		pts[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	return pts, true
}

func statsLines(res tracker.FrameResult) []string {
	lines := []string{
		fmt.Sprintf("frame %d  %s", res.Index, res.State),
		fmt.Sprintf("kp %d  good %d/%d", res.Keypoints, res.GoodMatches, res.Matches),
	}
	if res.HasCandidate {
		verdict := "rejected"
		if res.Accepted {
			verdict = "accepted"
		}
		lines = append(lines,
			fmt.Sprintf("inliers %d  det %.3f  %s", res.Inliers, res.Det, verdict),
			fmt.Sprintf("reproj %.2f px", res.ReprojError),
		)
	}
	return lines
}
