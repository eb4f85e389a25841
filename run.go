package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"

	"marker-overlay/internal/compositor"
	"marker-overlay/internal/config"
	"marker-overlay/internal/features"
	"marker-overlay/internal/homography"
	cvimage "marker-overlay/internal/image"
	"marker-overlay/internal/logging"
	"marker-overlay/internal/media"
	"marker-overlay/internal/tracker"

	"github.com/google/uuid"
)

// overrides are command-line values that take precedence over the config
// file. Empty strings and nil pointers leave the file value in place.
type overrides struct {
	camera   *int
	marker   string
	logLevel string
}

func (o overrides) apply(cfg *config.Config) {
	if o.camera != nil {
		cfg.Camera.Device = *o.camera
	}
	if o.marker != "" {
		cfg.Marker.Path = o.marker
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
}

func loadConfig(path string, ov overrides) (*config.Config, string, bool, error) {
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		return nil, "", false, fmt.Errorf("%w: %w", errUsage, err)
	}
	ov.apply(cfg)
	if !logging.ValidLevel(cfg.Logging.Level) {
		return nil, "", false, fmt.Errorf("%w: unsupported log level %q", errUsage, cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, fmt.Errorf("%w: %w", errUsage, err)
	}
	return cfg, resolved, exists, nil
}

func run(ctx context.Context, configPath string, ov overrides, videoPath string, printStats bool, stdout io.Writer) error {
	cfg, resolved, exists, err := loadConfig(configPath, ov)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	logger = logger.With("run_id", uuid.NewString())
	logger.Info("starting",
		"config", resolved,
		"config_found", exists,
		"video", videoPath,
		"camera", cfg.Camera.Device,
		"detector", cfg.Features.Detector,
	)

	marker, err := cvimage.LoadReference(cfg.Marker.Path, cfg.Marker.Width, cfg.Marker.Height)
	if err != nil {
		return fmt.Errorf("%w: %w", tracker.ErrMarkerLoad, err)
	}

	detector, err := features.ParseDetector(cfg.Features.Detector)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	extractor, err := features.NewCVExtractor(detector, cfg.Features.Threshold)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}
	defer extractor.Close()

	policy, err := media.ParsePolicy(cfg.Overlay.EndOfStream)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	overlay, err := media.OpenOverlay(videoPath, policy)
	if err != nil {
		return fmt.Errorf("%w: %w", errOverlayOpen, err)
	}
	defer overlay.Close()

	camera, err := media.OpenCamera(cfg.Camera.Device, cfg.Camera.Scale)
	if err != nil {
		return fmt.Errorf("%w: %w", tracker.ErrCameraRead, err)
	}
	defer camera.Close()

	var recorder *media.Recorder
	if cfg.Display.RecordPath != "" {
		recorder = media.NewRecorder(cfg.Display.RecordPath, cfg.Display.RecordFPS)
	}
	window := media.NewWindow(media.WindowOptions{
		Title:       cfg.Display.WindowTitle,
		WaitMS:      cfg.Display.WaitMS,
		DrawOutline: cfg.Display.DrawOutline,
		ShowStats:   cfg.Display.ShowStats,
		Recorder:    recorder,
	})
	defer window.Close()

	driver := tracker.NewDriver(tracker.Config{
		MarkerPath:     cfg.Marker.Path,
		MarkerSize:     image.Pt(cfg.Marker.Width, cfg.Marker.Height),
		Marker:         marker,
		Extractor:      extractor,
		DistanceFactor: cfg.Matching.DistanceFactor,
		Estimator: homography.NewEstimator(homography.Params{
			ReprojectionThreshold: cfg.Homography.ReprojectionThreshold,
			MaxIterations:         cfg.Homography.MaxIterations,
			Confidence:            cfg.Homography.Confidence,
			MinInliers:            cfg.Homography.MinInliers,
			Seed:                  cfg.Homography.Seed,
		}),
		Bounds: tracker.Bounds{
			MinDet: cfg.Validation.MinDeterminant,
			MaxDet: cfg.Validation.MaxDeterminant,
		},
		Compositor: compositor.New(rasterBackend(cfg.Display.Backend), compositor.Options{
			FitToMarker: cfg.Overlay.FitToMarker,
			MarkerSize:  image.Pt(cfg.Marker.Width, cfg.Marker.Height),
		}),
		CancelKey: cfg.Display.CancelKey,
		Logger:    logger,
	}, camera, overlay, window)

	runErr := driver.Run(ctx)
	logRunEnd(logger, runErr)

	if printStats {
		fmt.Fprintln(stdout, renderStats(driver.TrackerState().Stats, overlay.Frames(), overlay.Loops()))
	}
	return runErr
}

func rasterBackend(name string) compositor.Backend {
	if name == config.BackendOpenCV {
		return compositor.CVBackend{}
	}
	return compositor.GoBackend{}
}

func logRunEnd(logger *slog.Logger, err error) {
	switch code := exitCode(err); {
	case err == nil:
		logger.Info("stopped")
	case code == exitOK:
		logger.Info("stopped", "reason", err)
	default:
		logger.Error("stopped", "error", err, "exit_code", code)
	}
}
