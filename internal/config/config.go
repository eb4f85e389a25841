package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Marker describes the reference image.
type Marker struct {
	Path   string `toml:"path"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Camera selects the capture device.
type Camera struct {
	Device int     `toml:"device"`
	Scale  float64 `toml:"scale"` // resize factor applied before tracking
}

// Overlay configures the overlay video.
type Overlay struct {
	EndOfStream string `toml:"end_of_stream"` // loop, freeze or stop
	FitToMarker bool   `toml:"fit_to_marker"`
}

// Features configures keypoint detection.
type Features struct {
	Detector  string  `toml:"detector"`
	Threshold float64 `toml:"threshold"`
}

// Matching configures the match filter.
type Matching struct {
	DistanceFactor float64 `toml:"distance_factor"`
}

// Homography configures RANSAC.
type Homography struct {
	ReprojectionThreshold float64 `toml:"reprojection_threshold"`
	MaxIterations         int     `toml:"max_iterations"`
	Confidence            float64 `toml:"confidence"`
	MinInliers            int     `toml:"min_inliers"`
	Seed                  int64   `toml:"seed"`
}

// Validation holds the exclusive determinant bounds.
type Validation struct {
	MinDeterminant float64 `toml:"min_determinant"`
	MaxDeterminant float64 `toml:"max_determinant"`
}

// Display configures the output window and optional recording.
type Display struct {
	WindowTitle string  `toml:"window_title"`
	WaitMS      int     `toml:"wait_ms"`
	CancelKey   int     `toml:"cancel_key"`
	DrawOutline bool    `toml:"draw_outline"`
	ShowStats   bool    `toml:"show_stats"`
	RecordPath  string  `toml:"record_path"`
	RecordFPS   float64 `toml:"record_fps"`
	Backend     string  `toml:"backend"` // go or opencv
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values.
type Config struct {
	Marker     Marker     `toml:"marker"`
	Camera     Camera     `toml:"camera"`
	Overlay    Overlay    `toml:"overlay"`
	Features   Features   `toml:"features"`
	Matching   Matching   `toml:"matching"`
	Homography Homography `toml:"homography"`
	Validation Validation `toml:"validation"`
	Display    Display    `toml:"display"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/marker-overlay/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file. With
// an empty path the default locations are searched and a missing file leaves
// the defaults in place. It returns the config, the path consulted and
// whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config %s: %w", expanded, err)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("marker-overlay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
