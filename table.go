package main

import (
	"fmt"
	"strconv"

	"marker-overlay/internal/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func renderStats(s tracker.Stats, overlayFrames, overlayLoops int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	rows := [][2]string{
		{"Frames", strconv.Itoa(s.Frames)},
		{"Tracking", strconv.Itoa(s.Tracking)},
		{"Stale", strconv.Itoa(s.Stale)},
		{"Accepted", strconv.Itoa(s.Accepted)},
		{"Rejected", strconv.Itoa(s.Rejected)},
		{"Accept rate", fmt.Sprintf("%.1f%%", 100*s.AcceptRate())},
		{"Overlay frames", strconv.Itoa(overlayFrames)},
		{"Overlay loops", strconv.Itoa(overlayLoops)},
		{"Mean FPS", fmt.Sprintf("%.1f", s.FPS())},
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r[0], r[1]})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
