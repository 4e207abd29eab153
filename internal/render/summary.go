package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrintSummary writes a human-readable report of a finished render.
func PrintSummary(w io.Writer, res *Result) {
	if res == nil || res.Run == nil {
		return
	}
	run := res.Run

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Render Summary ===")
	fmt.Fprintf(w, "Run:        %s (%s)\n", run.ID, run.State)
	fmt.Fprintf(w, "Frames:     %s x %dx%d, %s pixels\n",
		humanize.Comma(int64(run.Frames)), run.Width, run.Height, humanize.Comma(run.Pixels()))
	fmt.Fprintf(w, "Plan:       %s / %s, %d workers, %s jobs\n",
		run.Planner, run.Scheduler, run.Workers, humanize.Comma(int64(run.Jobs)))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Setup:      %s\n", FormatDuration(res.Setup))
	fmt.Fprintf(w, "Compute:    %s", FormatDuration(res.Compute))
	if res.Compute > 0 {
		rate := float64(run.Pixels()) / res.Compute.Seconds()
		fmt.Fprintf(w, " (%s pixels/s)", humanize.SIWithDigits(rate, 1, ""))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Export:     %s, %s to %s\n", FormatDuration(res.Export), humanize.Bytes(uint64(res.Bytes)), res.Destination)
	fmt.Fprintf(w, "Total:      %s\n", FormatDuration(res.TotalWall))
	if run.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", run.Error)
	}
	fmt.Fprintln(w)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}
