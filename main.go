// Package main provides the entry point for the marker-overlay tracker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand(ctx, os.Stdin, os.Stdout)
	err := cmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil && code != exitOK {
		fmt.Fprintln(os.Stderr, "marker-overlay:", err)
	}
	os.Exit(code)
}
