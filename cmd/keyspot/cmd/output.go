package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// formatKeywords prints distinct keywords tab separated on one line.
// Nothing found prints nothing.
func formatKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return strings.Join(keywords, "\t") + "\n"
}

// formatMatches formats every match with its inclusive rune offsets.
//
//	⚡ 3 matches │ 3 keywords │ 4.1µs
//	  1-3    she
//	  2-3    he
func formatMatches(res *socket.ScanResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ %d matches%s │ %d keywords │ %s\n",
		colorBold, res.Count, colorReset, len(res.Keywords), res.Elapsed))
	for _, m := range res.Matches {
		sb.WriteString(fmt.Sprintf("  %s%-6s%s %s\n", colorGray, span(m), colorReset, m.Pattern))
	}
	return sb.String()
}

func span(m ports.Match) string {
	return fmt.Sprintf("%d-%d", m.Start, m.End)
}

// formatFragments formats a FragmentsResult for terminal display.
func formatFragments(res *socket.FragmentsResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ %d fragments%s │ %d keywords\n",
		colorBold, res.Count, colorReset, len(res.Keywords)))
	if len(res.Fragments) > 0 {
		sb.WriteString(fmt.Sprintf("  %s%s%s\n", colorGray, strings.Join(res.Fragments, " "), colorReset))
	}
	for _, kw := range res.Keywords {
		sb.WriteString(fmt.Sprintf("  %s%s%s\n", colorCyan, kw, colorReset))
	}
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ keyspot daemon%s\n", colorBold, colorReset))
	sb.WriteString(fmt.Sprintf("  Status:    %s%s%s\n", colorGreen, h.Status, colorReset))
	sb.WriteString(fmt.Sprintf("  Patterns:  %d\n", h.Patterns))
	sb.WriteString(fmt.Sprintf("  Uptime:    %s\n", h.Uptime))
	return sb.String()
}

// formatStats formats a StatsResult for terminal display.
func formatStats(s *socket.StatsResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ keyspot stats%s\n", colorBold, colorReset))
	sb.WriteString(fmt.Sprintf("  Engine:       %s\n", s.Engine))
	sb.WriteString(fmt.Sprintf("  Source:       %s%s%s\n", colorCyan, s.Source, colorReset))
	sb.WriteString(fmt.Sprintf("  Patterns:     %d\n", s.Patterns))
	sb.WriteString(fmt.Sprintf("  Fingerprint:  %s\n", s.Fingerprint))
	sb.WriteString(fmt.Sprintf("  Fold case:    %t\n", s.FoldCase))
	if s.LoadedAt != "" {
		sb.WriteString(fmt.Sprintf("  Loaded:       %s (build %.2fms)\n", s.LoadedAt, s.BuildTimeMs))
	}
	sb.WriteString(fmt.Sprintf("  Scans:        %d\n", s.Scans))
	sb.WriteString(fmt.Sprintf("  Reloads:      %d\n", s.Reloads))
	sb.WriteString(fmt.Sprintf("  Uptime:       %s\n", s.Uptime))
	return sb.String()
}

// formatReload formats a ReloadResult for terminal display.
func formatReload(r *socket.ReloadResult) string {
	state := fmt.Sprintf("%sunchanged%s", colorGray, colorReset)
	if r.Changed {
		state = fmt.Sprintf("%srebuilt%s", colorGreen, colorReset)
	}
	return fmt.Sprintf("⚡ %d patterns from %s │ %s │ %s\n", r.Patterns, r.Source, state, r.Elapsed)
}

// formatSets formats stored keyword sets as a table.
func formatSets(sets []ports.SetInfo) string {
	if len(sets) == 0 {
		return "⚡ no keyword sets stored\n"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ %d keyword sets%s\n", colorBold, len(sets), colorReset))
	for _, s := range sets {
		sb.WriteString(fmt.Sprintf("  %s%-20s%s %7d  %s%s%s\n",
			colorCyan, s.Name, colorReset, s.Count,
			colorGray, s.UpdatedAt.Local().Format(time.DateTime), colorReset))
	}
	return sb.String()
}
