package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

// ─── Color Palette (Catppuccin Mocha) ───────────────────────────────────────

var (
	colorSurface0 = lipgloss.Color("#313244") // card bg
	colorSurface1 = lipgloss.Color("#45475A") // lighter surface
	colorText     = lipgloss.Color("#CDD6F4") // primary text
	colorSubtext  = lipgloss.Color("#A6ADC8") // secondary text
	colorDim      = lipgloss.Color("#585B70") // muted, borders

	colorAccent   = lipgloss.Color("#CBA6F7") // mauve – primary accent
	colorBlue     = lipgloss.Color("#89B4FA") // section headers
	colorSapphire = lipgloss.Color("#74C7EC") // keys
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorTeal     = lipgloss.Color("#94E2D5")
	colorLavender = lipgloss.Color("#B4BEFE") // titles
	colorSky      = lipgloss.Color("#89DCEB")
	colorFlamingo = lipgloss.Color("#F2CDCD")
	colorMaroon   = lipgloss.Color("#EBA0AC")

	colorOK      = colorGreen
	colorWarn    = colorYellow
	colorCrit    = colorRed
	colorUnknown = colorDim
	colorBorder  = colorDim
)

// ─── Reusable Styles ────────────────────────────────────────────────────────

var (
	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAccent)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBlue)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorSapphire).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	tealStyle = lipgloss.NewStyle().
			Foreground(colorTeal)

	costStyle = lipgloss.NewStyle().
			Foreground(colorPeach)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	gaugeTrackStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	cardNormalStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1)

	cardSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				PaddingRight(1).
				Background(colorSurface0).
				Foreground(colorText).
				Bold(true)

	promptCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorYellow).
			Padding(0, 2)

	reportCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2)

	badgeOKStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	badgeWarnStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	badgeCritStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	badgeUnlimitedStyle = lipgloss.NewStyle().
				Foreground(colorSky).
				Bold(true)

	chartAxisStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	chartLabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)
)

var modelColorPalette = []lipgloss.Color{
	colorAccent, colorTeal, colorPeach, colorSky,
	colorYellow, colorLavender, colorFlamingo, colorMaroon,
	colorBlue, colorGreen,
}

// ModelColor returns a color for a model by its index.
func ModelColor(idx int) lipgloss.Color {
	if idx < 0 {
		idx = 0
	}
	return modelColorPalette[idx%len(modelColorPalette)]
}

// ─── Status Helpers ─────────────────────────────────────────────────────────

// StatusColor returns the accent color for a given status.
func StatusColor(s core.Status) lipgloss.Color {
	switch s {
	case core.StatusOK:
		return colorOK
	case core.StatusNearLimit:
		return colorWarn
	case core.StatusLimited:
		return colorCrit
	case core.StatusUnlimited:
		return colorSky
	default:
		return colorUnknown
	}
}

// StatusBadge returns a styled badge string for the status.
func StatusBadge(s core.Status) string {
	var style lipgloss.Style
	var text string
	switch s {
	case core.StatusOK:
		style = badgeOKStyle
		text = "OK"
	case core.StatusNearLimit:
		style = badgeWarnStyle
		text = "WARN"
	case core.StatusLimited:
		style = badgeCritStyle
		text = "LIMIT"
	case core.StatusUnlimited:
		style = badgeUnlimitedStyle
		text = "∞"
	default:
		style = dimStyle
		text = "…"
	}
	return style.Render(text)
}
