package main

import (
	"context"
	"errors"

	"marker-overlay/internal/media"
	"marker-overlay/internal/tracker"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitMarkerLoad = 2
	exitCameraRead = 3
	exitOverlay    = 4
)

var (
	errUsage       = errors.New("usage")
	errOverlayOpen = errors.New("overlay video unavailable")
)

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, media.ErrOverlayExhausted):
		return exitOK
	case errors.Is(err, tracker.ErrMarkerLoad):
		return exitMarkerLoad
	case errors.Is(err, tracker.ErrCameraRead):
		return exitCameraRead
	case errors.Is(err, errOverlayOpen):
		return exitOverlay
	default:
		return exitUsage
	}
}
