package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/parsers"
)

const notAvailable = "N/A"

var numberPrinter = message.NewPrinter(language.English)

// formatTimestamp renders an upstream timestamp; unparseable input is
// returned as-is.
func formatTimestamp(s string) string {
	if s == "" {
		return notAvailable
	}
	t := parsers.ParseTimestamp(s)
	if t.IsZero() {
		return s
	}
	return t.UTC().Format("Jan 02, 2006 15:04 MST")
}

func formatFetchedAt(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Local().Format("15:04:05")
}

func formatCount(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

// formatLimit renders a request limit, spelling out the unlimited sentinel.
func formatLimit(limit int) string {
	if core.IsUnlimited(limit) {
		return "unlimited"
	}
	return formatCount(int64(limit))
}

func formatUSD(n float64) string {
	return fmt.Sprintf("$%.2f", n)
}

// formatUSDPrecise is used for per-model costs, which are often fractions
// of a cent.
func formatUSDPrecise(n float64) string {
	return fmt.Sprintf("$%.4f", n)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func truncateToWidth(s string, maxW int) string {
	if maxW <= 0 || ansi.StringWidth(s) <= maxW {
		return s
	}
	return ansi.Truncate(s, maxW, "…")
}

func padRight(s string, w int) string {
	if gap := w - ansi.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func padLeft(s string, w int) string {
	if gap := w - ansi.StringWidth(s); gap > 0 {
		return strings.Repeat(" ", gap) + s
	}
	return s
}
