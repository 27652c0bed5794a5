package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderUsageGauge produces a text-based gauge that fills from left to right
// as usage increases (0=empty, 100=full). Colors shift green→yellow→red at
// the near-limit and limited thresholds. A negative percent means the bucket
// is unlimited.
func RenderUsageGauge(usedPercent float64, width int) string {
	if width < 5 {
		width = 5
	}

	if usedPercent < 0 {
		return gaugeTrackStyle.Render(strings.Repeat("─", width)) + badgeUnlimitedStyle.Render(" unlimited")
	}
	label := usedPercent
	if usedPercent > 100 {
		usedPercent = 100
	}

	filled := int(usedPercent / 100 * float64(width))
	empty := width - filled

	var color lipgloss.Color
	switch {
	case usedPercent >= 100:
		color = colorCrit
	case usedPercent >= 80:
		color = colorWarn
	default:
		color = colorOK
	}

	filledStyle := lipgloss.NewStyle().Foreground(color)
	trackStyle := lipgloss.NewStyle().Foreground(colorSurface1)

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		trackStyle.Render(strings.Repeat("━", empty))

	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	return fmt.Sprintf("%s %s", bar, pctStyle.Render(fmt.Sprintf("%5.1f%%", label)))
}
