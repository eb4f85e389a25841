// Command markertest runs one tracking iteration on a still scene image and
// prints the estimated transform.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"marker-overlay/internal/compositor"
	"marker-overlay/internal/features"
	cvimage "marker-overlay/internal/image"
	"marker-overlay/internal/tracker"
)

// stillSource returns the same frame once.
type stillSource struct {
	frame *image.RGBA
	read  bool
}

func (s *stillSource) Read() (*image.RGBA, error) {
	if s.read {
		return nil, errors.New("still image already consumed")
	}
	s.read = true
	return cvimage.CloneRGBA(s.frame), nil
}

type stillOverlay struct{ frame *image.RGBA }

func (o stillOverlay) Next() (*image.RGBA, error) { return o.frame, nil }

// captureDisplay keeps the last frame instead of showing it.
type captureDisplay struct{ last tracker.DisplayFrame }

func (d *captureDisplay) Show(f tracker.DisplayFrame) error {
	d.last = f
	return nil
}

func (d *captureDisplay) PollKey() int { return -1 }

func main() {
	markerPath := flag.String("m", "QR.png", "Path to marker image")
	scenePath := flag.String("s", "", "Path to scene image")
	overlayPath := flag.String("o", "", "Path to overlay image (defaults to the marker)")
	outPath := flag.String("out", "", "Write the composite to this PNG")
	detectorName := flag.String("d", "surf", "Detector: surf, sift or orb")
	threshold := flag.Float64("t", 0, "Detector threshold (0 selects the detector default)")
	size := flag.Int("size", 400, "Normalised marker side length")
	fit := flag.Bool("fit", false, "Fit the overlay to the marker rectangle")
	flag.Parse()

	if *scenePath == "" {
		fmt.Println("Usage: markertest -s <scene> [-m <marker>] [-o <overlay>] [-out <png>] [-d surf|sift|orb]")
		os.Exit(1)
	}

	marker, err := cvimage.LoadReference(*markerPath, *size, *size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load marker: %v\n", err)
		os.Exit(2)
	}
	scene, err := loadRGBA(*scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scene: %v\n", err)
		os.Exit(1)
	}
	overlay := cvimage.CloneRGBA(marker)
	if *overlayPath != "" {
		if overlay, err = loadRGBA(*overlayPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load overlay: %v\n", err)
			os.Exit(1)
		}
	}

	detector, err := features.ParseDetector(*detectorName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	extractor, err := features.NewCVExtractor(detector, *threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create extractor: %v\n", err)
		os.Exit(1)
	}
	defer extractor.Close()

	display := &captureDisplay{}
	driver := tracker.NewDriver(tracker.Config{
		MarkerPath: *markerPath,
		Marker:     marker,
		Extractor:  extractor,
		Compositor: compositor.New(compositor.GoBackend{}, compositor.Options{
			FitToMarker: *fit,
			MarkerSize:  image.Pt(*size, *size),
		}),
	}, &stillSource{frame: scene}, stillOverlay{frame: overlay}, display)

	if err := driver.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	fmt.Printf("=== Marker: %s ===\n", *markerPath)
	fmt.Printf("Keypoints: %d\n", driver.Reference().Features.Len())

	res, err := driver.Step(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tracking failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Scene: %s ===\n", *scenePath)
	fmt.Printf("Keypoints: %d\n", res.Keypoints)
	fmt.Printf("Matches: %d (good %d, min %.3f, max %.3f)\n", res.Matches, res.GoodMatches, res.MinDist, res.MaxDist)
	fmt.Printf("State: %s\n", res.State)

	if res.HasCandidate {
		fmt.Printf("\n=== Transform ===\n")
		for _, row := range res.Candidate {
			fmt.Printf("  [%10.4f %10.4f %10.4f]\n", row[0], row[1], row[2])
		}
		fmt.Printf("Inliers: %d\n", res.Inliers)
		fmt.Printf("Det: %.4f (accepted: %v)\n", res.Det, res.Accepted)
		fmt.Printf("Convex outline: %v\n", res.Convex)
		fmt.Printf("\nCorner mapping:\n")
		for i, c := range driver.Reference().Corners {
			p := res.Projected[i]
			fmt.Printf("  (%5.0f, %5.0f) -> (%8.1f, %8.1f)\n", c.X, c.Y, p.X, p.Y)
		}
	}

	if *outPath != "" {
		if err := writePNG(*outPath, display.last.Image); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write composite: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nComposite written to %s\n", *outPath)
	}
}

func loadRGBA(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return cvimage.CloneRGBA(img), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
