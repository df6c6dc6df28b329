// Package output renders accounts, workflow traces and process listings for
// the terminal.
//
// Tables use plain ASCII layout and ANSI colors when stdout is a terminal
// and NO_COLOR is unset. Progress indicators are safe for concurrent use.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/devalexanderdaza/antigravity-agent/internal/platform"
	"github.com/devalexanderdaza/antigravity-agent/internal/process"
	"github.com/devalexanderdaza/antigravity-agent/internal/snapshots"
	"github.com/devalexanderdaza/antigravity-agent/internal/switcher"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderAccountTable renders the saved accounts, newest first as listed.
// The active account, when known, is marked.
func RenderAccountTable(entries []snapshots.Entry, active string) string {
	if len(entries) == 0 {
		return "No saved accounts. Run 'antigravity-agent backup' while signed in.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %-36s %-8s %s\n", "Account", "Size", "Saved"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, e := range entries {
		marker := " "
		if active != "" && e.ID == active {
			marker = colorize(colorGreen, "*")
		}
		sb.WriteString(fmt.Sprintf("%s %-36s %-8s %s\n",
			marker,
			truncate(e.ID, 36),
			formatSize(e.Size),
			formatRelativeTime(e.ModTime)))
	}

	if active != "" {
		sb.WriteString(fmt.Sprintf("\n%s marks the signed-in account\n", colorize(colorGreen, "*")))
	}
	return sb.String()
}

// RenderTrace renders a workflow trace one step per line.
func RenderTrace(t *switcher.Trace) string {
	if t == nil {
		return ""
	}

	var sb strings.Builder
	title := t.Workflow
	if t.Account != "" {
		title += " " + t.Account
	}
	sb.WriteString(fmt.Sprintf("%s (run %s)\n", title, t.RunID))

	for _, s := range t.Steps {
		status, color := "ok", colorGreen
		switch {
		case s.Fatal:
			status, color = "failed", colorRed
		case s.Err != nil:
			status, color = "warn", colorYellow
		}
		sb.WriteString(fmt.Sprintf("  %s %-20s %s\n",
			colorize(color, fmt.Sprintf("%-6s", status)),
			s.State.String(),
			s.String()))
	}

	final := colorize(colorGreen, t.Final.String())
	if t.Final == switcher.StateFailed {
		final = colorize(colorRed, t.Final.String())
	} else if t.Err() != nil {
		final = colorize(colorYellow, t.Final.String()+" with warnings")
	}
	sb.WriteString(fmt.Sprintf("Result: %s\n", final))
	return sb.String()
}

// RenderProcessTable renders matched Antigravity processes.
func RenderProcessTable(matched []process.Matched) string {
	if len(matched) == 0 {
		return "Antigravity is not running.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-24s %-22s %s\n", "PID", "Name", "Matched by", "Command"))
	sb.WriteString(strings.Repeat("─", 88))
	sb.WriteString("\n")
	for _, m := range matched {
		sb.WriteString(fmt.Sprintf("%-8d %-24s %-22s %s\n",
			m.PID,
			truncate(m.Name, 24),
			truncate(m.Pattern.String(), 22),
			truncate(m.Cmdline, 40)))
	}
	return sb.String()
}

// RenderTerminateReport renders the outcome of a termination.
func RenderTerminateReport(report *process.TerminateReport) string {
	if report == nil || (len(report.Killed) == 0 && len(report.Failed) == 0) {
		return "Antigravity was not running.\n"
	}

	var sb strings.Builder
	for _, k := range report.Killed {
		line := fmt.Sprintf("terminated %s (pid %d)", k.Name, k.PID)
		if k.Retried {
			line += " after retry"
		}
		sb.WriteString(colorize(colorGreen, "✓") + " " + line + "\n")
	}
	for _, f := range report.Failed {
		sb.WriteString(fmt.Sprintf("%s could not terminate %s (pid %d): %v\n",
			colorize(colorRed, "✗"), f.Name, f.PID, f.Err))
	}
	return sb.String()
}

// RenderRestoreSummary renders a restore result, listing skipped keys.
func RenderRestoreSummary(s *snapshots.Summary) string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Restored %s: %d keys written", s.AccountID, len(s.Written)))
	if len(s.Skipped) > 0 {
		sb.WriteString(fmt.Sprintf(", %s", colorize(colorYellow, fmt.Sprintf("%d skipped", len(s.Skipped)))))
	}
	sb.WriteString("\n")
	for _, k := range s.Skipped {
		sb.WriteString(fmt.Sprintf("  %s %s: %v\n", colorize(colorGray, "-"), k.Key, k.Reason))
	}
	return sb.String()
}

// HostReport is what the info command shows.
type HostReport struct {
	Host         platform.Info
	ConfigDir    string
	SnapshotDir  string
	DataDir      string
	DataDirErr   error
	StateDB      string
	StateDBFound bool
	Executable   string
	Accounts     int
	Active       string
	Running      bool
	TrayEnabled  bool
	TrayRunning  bool
}

// RenderHostReport renders a HostReport as aligned label/value rows.
func RenderHostReport(r HostReport) string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(fmt.Sprintf("%-16s %s\n", label+":", value))
	}

	row("Platform", fmt.Sprintf("%s/%s", r.Host.OS, r.Host.Arch))
	if r.Host.Hostname != "" {
		row("Host", r.Host.Hostname)
	}
	row("Config dir", r.ConfigDir)
	row("Snapshots", fmt.Sprintf("%s (%d saved)", r.SnapshotDir, r.Accounts))

	if r.DataDirErr != nil {
		row("Data dir", colorize(colorRed, r.DataDirErr.Error()))
	} else {
		row("Data dir", r.DataDir)
	}
	switch {
	case r.StateDB == "":
	case r.StateDBFound:
		row("State DB", r.StateDB)
	default:
		row("State DB", colorize(colorYellow, r.StateDB+" (missing)"))
	}

	if r.Executable != "" {
		row("Executable", r.Executable)
	} else {
		row("Executable", colorize(colorYellow, "not found"))
	}
	row("Running", yesNo(r.Running))
	if r.Active != "" {
		row("Signed in as", r.Active)
	}
	row("Tray", fmt.Sprintf("%s (daemon %s)", enabledLabel(r.TrayEnabled), runningLabel(r.TrayRunning)))
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func enabledLabel(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func runningLabel(b bool) string {
	if b {
		return "running"
	}
	return "stopped"
}

// formatSize converts bytes to human-readable size (MB, KB).
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	diff := time.Since(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02")
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
