package config

// Default returns a complete configuration with built-in values.
func Default() Config {
	return Config{
		Marker: Marker{
			Path:   "QR.png",
			Width:  400,
			Height: 400,
		},
		Camera: Camera{
			Device: 0,
			Scale:  1.0,
		},
		Overlay: Overlay{
			EndOfStream: EndOfStreamLoop,
		},
		Features: Features{
			Detector:  "surf",
			Threshold: 0,
		},
		Matching: Matching{
			DistanceFactor: 3.0,
		},
		Homography: Homography{
			ReprojectionThreshold: 3.0,
			MaxIterations:         2000,
			Confidence:            0.995,
			MinInliers:            4,
			Seed:                  1,
		},
		Validation: Validation{
			MinDeterminant: 0.05,
			MaxDeterminant: 200,
		},
		Display: Display{
			WindowTitle: "Test",
			WaitMS:      1,
			CancelKey:   27,
			RecordFPS:   25,
			Backend:     BackendGo,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Overlay end-of-stream policies.
const (
	EndOfStreamLoop   = "loop"
	EndOfStreamFreeze = "freeze"
	EndOfStreamStop   = "stop"
)

// defaultSURFThreshold is what a zero features.threshold resolves to for
// SURF. SIFT and ORB keep zero, which disables their response filter.
const defaultSURFThreshold = 300

// Compositor raster backends.
const (
	BackendGo     = "go"
	BackendOpenCV = "opencv"
)
