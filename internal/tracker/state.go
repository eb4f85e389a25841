package tracker

import (
	"time"

	"marker-overlay/pkg/geometry"
)

// State is a pipeline driver state.
type State int

const (
	StateInit State = iota
	StateReady
	StateTracking
	StateStale
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateReady:
		return "READY"
	case StateTracking:
		return "TRACKING"
	case StateStale:
		return "STALE"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// TrackerState is the state carried from one frame to the next.
type TrackerState struct {
	// Active is the last accepted transform, identity before the first
	// accepted detection.
	Active geometry.Homography
	Frame  int
	Stats  Stats
}

// NewTrackerState returns the state before any frame has been processed.
func NewTrackerState() TrackerState {
	return TrackerState{Active: geometry.IdentityHomography()}
}

// FrameResult describes what happened to one camera frame.
type FrameResult struct {
	Index       int
	State       State
	Keypoints   int
	Matches     int
	GoodMatches int
	MinDist     float64
	MaxDist     float64
	Inliers     int

	// HasCandidate is set when the estimator produced a transform.
	HasCandidate bool
	Candidate    geometry.Homography
	Det          float64
	// ReprojError is the mean inlier reprojection distance in pixels.
	ReprojError  float64
	Accepted     bool
	Active       geometry.Homography

	// Projected holds the marker corners mapped by the candidate.
	Projected []geometry.Point2D
	Convex    bool

	Elapsed time.Duration
}

// Stats aggregates frame results over a run.
type Stats struct {
	Frames        int
	Tracking      int
	Stale         int
	Accepted      int
	Rejected      int
	OverlayFrames int
	Elapsed       time.Duration
}

// Record adds one frame result.
func (s *Stats) Record(r FrameResult) {
	s.Frames++
	s.Elapsed += r.Elapsed
	switch r.State {
	case StateTracking:
		s.Tracking++
		s.OverlayFrames++
		if r.Accepted {
			s.Accepted++
		} else {
			s.Rejected++
		}
	case StateStale:
		s.Stale++
	}
}

// FPS returns the mean processing rate.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// AcceptRate returns the fraction of frames with an accepted transform.
func (s Stats) AcceptRate() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Frames)
}
