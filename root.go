package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"marker-overlay/internal/version"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	camera     int
	marker     string
	logLevel   string
	stats      bool
}

func newRootCommand(ctx context.Context, stdin io.Reader, stdout io.Writer) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "marker-overlay [video]",
		Short:         "Track a planar marker in the camera feed and overlay a video on it",
		Args:          cobra.MaximumNArgs(1),
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, err := resolveVideoPath(args, stdin, stdout, isTerminal(stdin))
			if err != nil {
				return err
			}
			ov := overrides{
				marker:   opts.marker,
				logLevel: opts.logLevel,
			}
			if cmd.Flags().Changed("camera") {
				ov.camera = &opts.camera
			}
			return run(cmd.Context(), opts.configPath, ov, videoPath, opts.stats, stdout)
		},
	}
	cmd.SetContext(ctx)
	cmd.SetVersionTemplate("marker-overlay {{.Version}}\n")

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	flags.IntVar(&opts.camera, "camera", 0, "Camera device index")
	flags.StringVar(&opts.marker, "marker", "", "Marker image path")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.stats, "stats", false, "Print a summary table when the run ends")

	return cmd
}

// resolveVideoPath takes the positional argument, or prompts for it when
// stdin is a terminal.
func resolveVideoPath(args []string, in io.Reader, out io.Writer, interactive bool) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if !interactive {
		return "", fmt.Errorf("%w: overlay video path required", errUsage)
	}

	fmt.Fprint(out, "Enter a video file name: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read video path: %w", err)
		}
		return "", fmt.Errorf("%w: no video path entered", errUsage)
	}
	path := strings.TrimSpace(scanner.Text())
	if path == "" {
		return "", fmt.Errorf("%w: no video path entered", errUsage)
	}
	return path, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
