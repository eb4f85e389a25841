package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Marker.Path, err = expandPath(strings.TrimSpace(c.Marker.Path)); err != nil {
		return fmt.Errorf("marker.path: %w", err)
	}
	if c.Display.RecordPath, err = expandPath(strings.TrimSpace(c.Display.RecordPath)); err != nil {
		return fmt.Errorf("display.record_path: %w", err)
	}

	c.Overlay.EndOfStream = lower(c.Overlay.EndOfStream, EndOfStreamLoop)
	c.Features.Detector = lower(c.Features.Detector, "surf")
	if c.Features.Threshold == 0 && c.Features.Detector == "surf" {
		c.Features.Threshold = defaultSURFThreshold
	}
	c.Display.Backend = lower(c.Display.Backend, BackendGo)
	c.Logging.Level = lower(c.Logging.Level, "info")
	c.Logging.Format = lower(c.Logging.Format, "console")
	if strings.TrimSpace(c.Display.WindowTitle) == "" {
		c.Display.WindowTitle = "Test"
	}
	return nil
}

func lower(value, fallback string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return fallback
	}
	return v
}
