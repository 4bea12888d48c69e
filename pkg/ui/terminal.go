package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"rewardsreceipts/pkg/syncer"
)

// ASCII logo for the application
const ASCIILogo = `
  ┌─────────────────────────────────────────────┐
  │  R E W A R D S   R E C E I P T S            │
  │  everyday rewards e-receipt downloader      │
  └─────────────────────────────────────────────┘
`

var (
	output   io.Writer = os.Stdout
	renderer           = lipgloss.NewRenderer(os.Stdout)
	quiet    bool
)

// SetOutput redirects all terminal output to w. Colors are only used when w
// is a terminal that supports them.
func SetOutput(w io.Writer) {
	output = w
	renderer = lipgloss.NewRenderer(w)
}

// SetQuiet suppresses the logo, info lines and per-item progress. Errors,
// warnings and the run summary are still printed.
func SetQuiet(q bool) {
	quiet = q
}

func colorize(color lipgloss.Color) func(string) string {
	return func(text string) string {
		return renderer.NewStyle().Foreground(color).Render(text)
	}
}

// Color functions for terminal output
var (
	Cyan    = colorize(lipgloss.Color("6"))
	Yellow  = colorize(lipgloss.Color("3"))
	Red     = colorize(lipgloss.Color("1"))
	Green   = colorize(lipgloss.Color("2"))
	Magenta = colorize(lipgloss.Color("5"))
)

// Dim renders text faint
func Dim(text string) string {
	return renderer.NewStyle().Faint(true).Render(text)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if quiet {
		return
	}
	fmt.Fprint(output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(output, Green(msg))
}

// PrintInfo prints a labelled value
func PrintInfo(label string, value string) {
	if quiet {
		return
	}
	fmt.Fprintf(output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(output, Magenta(msg))
}

// PrintSummary prints the end-of-run counts
func PrintSummary(stats *syncer.Stats) {
	if stats == nil {
		return
	}

	rows := [][2]string{
		{"Pages fetched", fmt.Sprintf("%d", stats.Pages)},
		{"Groups", fmt.Sprintf("%d", stats.Groups)},
		{"Items", fmt.Sprintf("%d", stats.Items)},
		{"Downloaded", fmt.Sprintf("%d (%s)", stats.Downloaded, formatBytes(stats.Bytes))},
		{"Already present", fmt.Sprintf("%d", stats.SkippedExisting)},
		{"Without receipt", fmt.Sprintf("%d", stats.SkippedNoReceipt)},
		{"Duration", formatDuration(stats.Duration)},
	}

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-16s %s\n", row[0], row[1])
	}

	title := Green("Sync complete")
	if stats.Failed > 0 || stats.GroupsFailed > 0 {
		title = Yellow("Sync complete with failures")
		if stats.GroupsFailed > 0 {
			fmt.Fprintf(&b, "  %-16s %s\n", "Groups failed", Red(fmt.Sprintf("%d", stats.GroupsFailed)))
		}
		if stats.Failed > 0 {
			fmt.Fprintf(&b, "  %-16s %s\n", "Items failed", Red(fmt.Sprintf("%d", stats.Failed)))
		}
	}

	fmt.Fprintf(output, "\n%s\n%s", title, b.String())
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
