// Package tracker runs the per-frame marker tracking pipeline: feature
// matching against the marker, transform estimation and validation, and
// overlay compositing.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"marker-overlay/internal/compositor"
	"marker-overlay/internal/features"
	"marker-overlay/internal/homography"
	cvimage "marker-overlay/internal/image"
	"marker-overlay/internal/logging"
	"marker-overlay/internal/matching"
	"marker-overlay/pkg/geometry"
)

var (
	// ErrMarkerLoad is returned when the marker image cannot be loaded or
	// yields no features.
	ErrMarkerLoad = errors.New("marker load failed")
	// ErrCameraRead is returned when the camera cannot deliver a frame.
	ErrCameraRead = errors.New("camera read failed")
	// ErrOverlayExhausted is returned by an OverlayStream that has no more
	// frames to give. The driver treats it as a normal end of run.
	ErrOverlayExhausted = errors.New("overlay video exhausted")
)

// FrameSource delivers camera frames.
type FrameSource interface {
	Read() (*image.RGBA, error)
}

// OverlayStream delivers overlay video frames, one per call.
type OverlayStream interface {
	Next() (*image.RGBA, error)
}

// DisplayFrame is what the driver hands to the display each iteration.
type DisplayFrame struct {
	Image  *image.RGBA
	Result FrameResult
}

// Display shows frames and reports the key pressed during its bounded
// wait, or -1.
type Display interface {
	Show(frame DisplayFrame) error
	PollKey() int
}

// Config wires a Driver.
type Config struct {
	MarkerPath string
	MarkerSize image.Point
	// Marker, when set, is used instead of loading MarkerPath.
	Marker *image.Gray

	Extractor features.Extractor
	// Matcher defaults to matching.NewMatcher for the marker's norm.
	Matcher        matching.Matcher
	DistanceFactor float64
	Estimator      *homography.Estimator
	Bounds         Bounds
	Compositor     *compositor.Compositor

	CancelKey int
	Logger    *slog.Logger
}

// Reference is the marker and its features, computed once.
type Reference struct {
	Image    *image.Gray
	Features features.Features
	Corners  []geometry.Point2D
}

// Driver is the pipeline state machine. It is not safe for concurrent use.
type Driver struct {
	cfg     Config
	camera  FrameSource
	overlay OverlayStream
	display Display
	logger  *slog.Logger

	state   State
	tracker TrackerState
	ref     Reference
}

// NewDriver creates a driver in StateInit.
func NewDriver(cfg Config, camera FrameSource, overlay OverlayStream, display Display) *Driver {
	if cfg.DistanceFactor <= 0 {
		cfg.DistanceFactor = matching.DefaultDistanceFactor
	}
	if cfg.Estimator == nil {
		cfg.Estimator = homography.NewEstimator(homography.DefaultParams())
	}
	if cfg.Bounds == (Bounds{}) {
		cfg.Bounds = DefaultBounds()
	}
	if cfg.Compositor == nil {
		cfg.Compositor = compositor.New(nil, compositor.Options{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Driver{
		cfg:     cfg,
		camera:  camera,
		overlay: overlay,
		display: display,
		logger:  logger,
		state:   StateInit,
		tracker: NewTrackerState(),
	}
}

// State returns the current state.
func (d *Driver) State() State { return d.state }

// TrackerState returns the state carried between frames.
func (d *Driver) TrackerState() TrackerState { return d.tracker }

// Reference returns the loaded marker. Valid after Init.
func (d *Driver) Reference() Reference { return d.ref }

// Init loads the marker and extracts its features. It moves the driver to
// StateReady, or to StateTerminated with an ErrMarkerLoad error.
func (d *Driver) Init() error {
	if d.state != StateInit {
		return fmt.Errorf("init called in state %s", d.state)
	}
	ref, err := d.loadReference()
	if err != nil {
		d.state = StateTerminated
		return fmt.Errorf("%w: %w", ErrMarkerLoad, err)
	}
	d.ref = ref
	if d.cfg.Matcher == nil {
		d.cfg.Matcher = matching.NewMatcher(ref.Features.Descriptors.Norm)
	}
	d.state = StateReady
	d.logger.Info("marker loaded",
		"path", d.cfg.MarkerPath,
		"width", ref.Image.Bounds().Dx(),
		"height", ref.Image.Bounds().Dy(),
		"keypoints", ref.Features.Len(),
	)
	return nil
}

func (d *Driver) loadReference() (Reference, error) {
	img := d.cfg.Marker
	if img == nil {
		var err error
		img, err = cvimage.LoadReference(d.cfg.MarkerPath, d.cfg.MarkerSize.X, d.cfg.MarkerSize.Y)
		if err != nil {
			return Reference{}, err
		}
	}
	if d.cfg.Extractor == nil {
		return Reference{}, errors.New("no feature extractor configured")
	}
	feats, err := d.cfg.Extractor.Extract(img)
	if err != nil {
		return Reference{}, fmt.Errorf("extract marker features: %w", err)
	}
	if feats.Empty() {
		return Reference{}, errors.New("marker has no features")
	}
	b := img.Bounds()
	return Reference{
		Image:    img,
		Features: feats,
		Corners:  geometry.NewRect(0, 0, float64(b.Dx()), float64(b.Dy())).Corners(),
	}, nil
}

// Track runs extraction, matching, filtering, estimation and validation on
// one scene frame. It returns the next tracker state and does not touch the
// driver's own state. A returned error means the frame itself was unusable.
func (d *Driver) Track(ts TrackerState, scene *image.Gray) (TrackerState, FrameResult, error) {
	res := FrameResult{Index: ts.Frame, State: StateStale, Active: ts.Active}
	ts.Frame++

	feats, err := d.cfg.Extractor.Extract(scene)
	if err != nil {
		return ts, res, fmt.Errorf("extract frame features: %w", err)
	}
	res.Keypoints = feats.Len()
	if feats.Empty() {
		return ts, res, nil
	}

	matches, err := d.cfg.Matcher.Match(d.ref.Features.Descriptors, feats.Descriptors)
	if err != nil {
		return ts, res, fmt.Errorf("match descriptors: %w", err)
	}
	res.Matches = len(matches)

	filtered := matching.Filter(matches, d.cfg.DistanceFactor)
	res.GoodMatches = len(filtered.Good)
	res.MinDist, res.MaxDist = filtered.MinDist, filtered.MaxDist
	if len(filtered.Good) == 0 {
		return ts, res, nil
	}

	queryIdx := make([]int, len(filtered.Good))
	trainIdx := make([]int, len(filtered.Good))
	for i, m := range filtered.Good {
		queryIdx[i], trainIdx[i] = m.QueryIdx, m.TrainIdx
	}
	src := d.ref.Features.Points(queryIdx)
	dst := feats.Points(trainIdx)

	est, err := d.cfg.Estimator.Estimate(src, dst)
	if err != nil {
		// Absent transform; the frame is stale, not broken.
		d.logger.Debug("no transform", "frame", res.Index, "good_matches", res.GoodMatches, "error", err)
		return ts, res, nil
	}

	res.State = StateTracking
	res.HasCandidate = true
	res.Candidate = est.H
	res.Inliers = len(est.Inliers)
	res.Det = est.H.Det()
	res.ReprojError = homography.CalculateReprojectionError(pick(src, est.Inliers), pick(dst, est.Inliers), est.H)
	res.Projected = est.H.ApplyAll(d.ref.Corners)
	res.Convex = geometry.IsConvex(res.Projected)

	ts.Active, res.Accepted = Validate(est.H, ts.Active, d.cfg.Bounds)
	res.Active = ts.Active
	return ts, res, nil
}

func pick(pts []geometry.Point2D, idx []int) []geometry.Point2D {
	out := make([]geometry.Point2D, len(idx))
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

// Step processes one camera frame: track, advance the overlay when a
// candidate exists, composite, show, then poll for cancellation.
func (d *Driver) Step(ctx context.Context) (FrameResult, error) {
	switch d.state {
	case StateReady, StateTracking, StateStale:
	default:
		return FrameResult{}, fmt.Errorf("step called in state %s", d.state)
	}
	start := time.Now()

	frame, err := d.camera.Read()
	if err != nil {
		return FrameResult{}, d.fail(fmt.Errorf("%w: %w", ErrCameraRead, err))
	}
	if frame == nil || frame.Bounds().Empty() {
		return FrameResult{}, d.fail(fmt.Errorf("%w: empty frame", ErrCameraRead))
	}

	next, res, err := d.Track(d.tracker, cvimage.ToGray(frame))
	if err != nil {
		if errors.Is(err, features.ErrEmptyImage) {
			err = fmt.Errorf("%w: %w", ErrCameraRead, err)
		}
		return res, d.fail(err)
	}

	out := frame
	if res.State == StateTracking {
		overlayFrame, err := d.overlay.Next()
		if errors.Is(err, ErrOverlayExhausted) {
			d.terminate("overlay exhausted")
			return res, fmt.Errorf("advance overlay: %w", err)
		}
		if err != nil {
			return res, d.fail(fmt.Errorf("advance overlay: %w", err))
		}
		out, err = d.cfg.Compositor.Composite(frame, overlayFrame, next.Active, res.Accepted)
		if err != nil {
			return res, d.fail(fmt.Errorf("composite: %w", err))
		}
	}

	res.Elapsed = time.Since(start)
	next.Stats.Record(res)
	d.tracker = next
	d.state = res.State

	d.logger.Debug("frame",
		"frame", res.Index,
		"state", res.State.String(),
		"keypoints", res.Keypoints,
		"good_matches", res.GoodMatches,
		"inliers", res.Inliers,
		"det", res.Det,
		"reproj_error", res.ReprojError,
		"accepted", res.Accepted,
	)

	if err := d.display.Show(DisplayFrame{Image: out, Result: res}); err != nil {
		return res, d.fail(fmt.Errorf("display: %w", err))
	}

	if key := d.display.PollKey(); key >= 0 && key == d.cfg.CancelKey {
		d.terminate("cancel key")
	} else if ctx.Err() != nil {
		d.terminate("context cancelled")
	}
	return res, nil
}

// Run initialises the driver if needed and steps until termination. Cancel
// keys and context cancellation end the run with a nil error.
func (d *Driver) Run(ctx context.Context) error {
	if d.state == StateInit {
		if err := d.Init(); err != nil {
			return err
		}
	}
	for d.state != StateTerminated {
		if _, err := d.Step(ctx); err != nil {
			return err
		}
	}
	s := d.tracker.Stats
	d.logger.Info("run finished",
		"frames", s.Frames,
		"accepted", s.Accepted,
		"rejected", s.Rejected,
		"stale", s.Stale,
		"fps", s.FPS(),
	)
	return nil
}

func (d *Driver) fail(err error) error {
	d.state = StateTerminated
	d.logger.Error("pipeline terminated", "error", err)
	return err
}

func (d *Driver) terminate(reason string) {
	d.state = StateTerminated
	d.logger.Info("pipeline terminated", "reason", reason)
}
