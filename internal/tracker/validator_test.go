package tracker_test

import (
	"math"
	"testing"

	"marker-overlay/internal/tracker"
	"marker-overlay/pkg/geometry"
)

func TestValidateDeterminantBounds(t *testing.T) {
	active := geometry.TranslationHomography(3, 4)
	tests := []struct {
		name      string
		candidate geometry.Homography
		accept    bool
	}{
		{"identity", geometry.IdentityHomography(), true},
		{"shrink", geometry.ScaleHomography(0.5, 0.5), true},
		{"negative det", geometry.ScaleHomography(-2, 1), true},
		{"just above min", geometry.ScaleHomography(0.0501, 1), true},
		{"just below max", geometry.ScaleHomography(199.9, 1), true},
		{"exactly min", geometry.ScaleHomography(0.05, 1), false},
		{"exactly max", geometry.ScaleHomography(200, 1), false},
		{"collapsed", geometry.ScaleHomography(0.01, 1), false},
		{"exploded", geometry.ScaleHomography(300, 1), false},
		{"singular", geometry.Homography{{1, 2, 0}, {2, 4, 0}, {0, 0, 1}}, false},
		{"not finite", geometry.Homography{{math.NaN(), 0, 0}, {0, 1, 0}, {0, 0, 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tracker.Validate(tt.candidate, active, tracker.DefaultBounds())
			if ok != tt.accept {
				t.Fatalf("accepted = %v, want %v (det %v)", ok, tt.accept, tt.candidate.Det())
			}
			want := active
			if tt.accept {
				want = tt.candidate
			}
			if got != want {
				t.Fatalf("returned %v, want %v", got, want)
			}
		})
	}
}

func TestValidateCustomBounds(t *testing.T) {
	b := tracker.Bounds{MinDet: 1, MaxDet: 2}
	if _, ok := tracker.Validate(geometry.ScaleHomography(1.2, 1), geometry.IdentityHomography(), b); !ok {
		t.Fatal("expected det 1.2 to be accepted")
	}
	if _, ok := tracker.Validate(geometry.ScaleHomography(0.5, 1), geometry.IdentityHomography(), b); ok {
		t.Fatal("expected det 0.5 to be rejected")
	}
}

func TestNewTrackerStateStartsAtIdentity(t *testing.T) {
	ts := tracker.NewTrackerState()
	if ts.Active != geometry.IdentityHomography() {
		t.Fatalf("initial active transform = %v", ts.Active)
	}
	if ts.Frame != 0 || ts.Stats.Frames != 0 {
		t.Fatalf("unexpected initial counters: %+v", ts)
	}
}

func TestStateString(t *testing.T) {
	want := map[tracker.State]string{
		tracker.StateInit:       "INIT",
		tracker.StateReady:      "READY",
		tracker.StateTracking:   "TRACKING",
		tracker.StateStale:      "STALE",
		tracker.StateTerminated: "TERMINATED",
		tracker.State(42):       "UNKNOWN",
	}
	for s, name := range want {
		if s.String() != name {
			t.Fatalf("State(%d).String() = %q, want %q", int(s), s.String(), name)
		}
	}
}

func TestStatsRecord(t *testing.T) {
	var s tracker.Stats
	s.Record(tracker.FrameResult{State: tracker.StateTracking, Accepted: true})
	s.Record(tracker.FrameResult{State: tracker.StateTracking})
	s.Record(tracker.FrameResult{State: tracker.StateStale})
	s.Record(tracker.FrameResult{State: tracker.StateStale})

	if s.Frames != 4 || s.Tracking != 2 || s.Stale != 2 || s.Accepted != 1 || s.Rejected != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.OverlayFrames != 2 {
		t.Fatalf("overlay frames = %d, want 2", s.OverlayFrames)
	}
	if got := s.AcceptRate(); got != 0.25 {
		t.Fatalf("accept rate = %v, want 0.25", got)
	}
	if s.FPS() != 0 {
		t.Fatal("expected zero FPS without elapsed time")
	}
}
