package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateMarker,
		c.validateCamera,
		c.validateOverlay,
		c.validateFeatures,
		c.validateTracking,
		c.validateDisplay,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateMarker() error {
	if c.Marker.Path == "" {
		return errors.New("marker.path must be set")
	}
	if c.Marker.Width <= 0 || c.Marker.Height <= 0 {
		return errors.New("marker.width and marker.height must be positive")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.Device < 0 {
		return errors.New("camera.device must be >= 0")
	}
	if c.Camera.Scale <= 0 || c.Camera.Scale > 4 {
		return fmt.Errorf("camera.scale must be in (0, 4], got %v", c.Camera.Scale)
	}
	return nil
}

func (c *Config) validateOverlay() error {
	switch c.Overlay.EndOfStream {
	case EndOfStreamLoop, EndOfStreamFreeze, EndOfStreamStop:
		return nil
	}
	return fmt.Errorf("overlay.end_of_stream: unsupported value %q", c.Overlay.EndOfStream)
}

func (c *Config) validateFeatures() error {
	switch c.Features.Detector {
	case "surf", "sift", "orb":
	default:
		return fmt.Errorf("features.detector: unsupported value %q", c.Features.Detector)
	}
	if c.Features.Threshold < 0 {
		return errors.New("features.threshold must be >= 0")
	}
	return nil
}

func (c *Config) validateTracking() error {
	if c.Matching.DistanceFactor <= 0 {
		return errors.New("matching.distance_factor must be positive")
	}
	h := c.Homography
	if h.ReprojectionThreshold <= 0 {
		return errors.New("homography.reprojection_threshold must be positive")
	}
	if h.MaxIterations <= 0 {
		return errors.New("homography.max_iterations must be positive")
	}
	if h.Confidence <= 0 || h.Confidence >= 1 {
		return errors.New("homography.confidence must be between 0 and 1")
	}
	if h.MinInliers < 4 {
		return errors.New("homography.min_inliers must be >= 4")
	}
	v := c.Validation
	if v.MinDeterminant < 0 {
		return errors.New("validation.min_determinant must be >= 0")
	}
	if v.MinDeterminant >= v.MaxDeterminant {
		return errors.New("validation.min_determinant must be < max_determinant")
	}
	return nil
}

func (c *Config) validateDisplay() error {
	d := c.Display
	if d.WaitMS <= 0 {
		return errors.New("display.wait_ms must be positive")
	}
	if d.RecordPath != "" && d.RecordFPS <= 0 {
		return errors.New("display.record_fps must be positive when recording")
	}
	switch d.Backend {
	case BackendGo, BackendOpenCV:
		return nil
	}
	return fmt.Errorf("display.backend: unsupported value %q", d.Backend)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
		return nil
	}
	return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
}
