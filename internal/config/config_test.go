package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"marker-overlay/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file")
	}
	if !strings.HasSuffix(resolved, filepath.Join(".config", "marker-overlay", "config.toml")) {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	def := config.Default()
	if cfg.Homography != def.Homography || cfg.Validation != def.Validation {
		t.Fatalf("tracking defaults changed: %+v %+v", cfg.Homography, cfg.Validation)
	}
	if filepath.Base(cfg.Marker.Path) != "QR.png" || !filepath.IsAbs(cfg.Marker.Path) {
		t.Fatalf("unexpected marker path %q", cfg.Marker.Path)
	}
	if cfg.Overlay.EndOfStream != config.EndOfStreamLoop {
		t.Fatalf("unexpected end of stream policy %q", cfg.Overlay.EndOfStream)
	}
	if cfg.Display.CancelKey != 27 || cfg.Display.WindowTitle != "Test" {
		t.Fatalf("unexpected display defaults: %+v", cfg.Display)
	}
	if cfg.Features.Detector != "surf" || cfg.Features.Threshold != 300 {
		t.Fatalf("unexpected feature defaults: %+v", cfg.Features)
	}
}

func TestDefaultThresholdFollowsDetector(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		threshold float64
	}{
		{name: "surf default", body: "[features]\ndetector = \"surf\"\n", threshold: 300},
		{name: "sift default", body: "[features]\ndetector = \"sift\"\n", threshold: 0},
		{name: "orb default", body: "[features]\ndetector = \"orb\"\n", threshold: 0},
		{name: "orb explicit", body: "[features]\ndetector = \"orb\"\nthreshold = 0.01\n", threshold: 0.01},
		{name: "surf explicit", body: "[features]\ndetector = \"surf\"\nthreshold = 450.0\n", threshold: 450},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			cfg, _, _, err := config.Load(writeConfig(t, tt.body))
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.Features.Threshold != tt.threshold {
				t.Fatalf("threshold = %v, want %v", cfg.Features.Threshold, tt.threshold)
			}
		})
	}
}

func TestLoadFindsProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "marker-overlay.toml"), []byte("[camera]\ndevice = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || cfg.Camera.Device != 2 {
		t.Fatalf("project file not applied: exists=%v device=%d", exists, cfg.Camera.Device)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[marker]
path = "~/markers/board.png"
width = 320
height = 240

[overlay]
end_of_stream = " Freeze "

[features]
detector = "ORB"
threshold = 0.0

[validation]
min_determinant = 0.1
max_determinant = 50.0

[logging]
level = "DEBUG"
format = "json"
`)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if cfg.Marker.Path != filepath.Join(home, "markers", "board.png") {
		t.Fatalf("marker path not expanded: %q", cfg.Marker.Path)
	}
	if cfg.Marker.Width != 320 || cfg.Marker.Height != 240 {
		t.Fatalf("marker size not applied: %+v", cfg.Marker)
	}
	if cfg.Overlay.EndOfStream != config.EndOfStreamFreeze {
		t.Fatalf("end of stream = %q", cfg.Overlay.EndOfStream)
	}
	if cfg.Features.Detector != "orb" {
		t.Fatalf("detector = %q", cfg.Features.Detector)
	}
	if cfg.Validation.MinDeterminant != 0.1 || cfg.Validation.MaxDeterminant != 50 {
		t.Fatalf("validation = %+v", cfg.Validation)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Homography.MaxIterations != 2000 {
		t.Fatalf("unset keys should keep defaults, got %d", cfg.Homography.MaxIterations)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"determinant order", "[validation]\nmin_determinant = 5.0\nmax_determinant = 1.0\n", "validation.min_determinant must be < max_determinant"},
		{"detector", "[features]\ndetector = \"fast\"\n", "features.detector"},
		{"policy", "[overlay]\nend_of_stream = \"rewind\"\n", "overlay.end_of_stream"},
		{"scale", "[camera]\nscale = 0.0\n", "camera.scale"},
		{"confidence", "[homography]\nconfidence = 1.0\n", "homography.confidence"},
		{"min inliers", "[homography]\nmin_inliers = 3\n", "homography.min_inliers"},
		{"backend", "[display]\nbackend = \"vulkan\"\n", "display.backend"},
		{"log level", "[logging]\nlevel = \"trace\"\n", "logging.level"},
		{"unknown key", "[camera]\nfps = 30\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := config.Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for a missing explicit config")
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample does not parse: %v", err)
	}
	def := config.Default()
	if parsed != def {
		t.Fatalf("sample config drifted from defaults:\n got %+v\nwant %+v", parsed, def)
	}
}
