package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/monitor"
)

const (
	defaultWidth   = 72
	minWidth       = 40
	labelColWidth  = 16
	maxChartModels = 8
	chartLabelMax  = 18
)

// RenderReport renders the main view: account, subscription, usage buckets
// and spending totals.
func RenderReport(r monitor.Report, width int) string {
	width = clampWidth(width)
	inner := width - 6

	var sb strings.Builder
	sb.WriteString(renderTitle(r, inner))
	sb.WriteString("\n\n")

	sb.WriteString(sectionHeaderStyle.Render("Account"))
	sb.WriteString("\n")
	writeField(&sb, "Email", orNA(r.Account.Email), inner)
	writeField(&sb, "User ID", orNA(accountUserID(r)), inner)
	writeField(&sb, "Name", orNA(r.Account.Name), inner)
	writeField(&sb, "Updated", formatTimestamp(r.Account.UpdatedAt), inner)

	sb.WriteString("\n")
	sb.WriteString(sectionHeaderStyle.Render("Subscription"))
	sb.WriteString("\n")
	membership := r.Subscription.MembershipType
	if membership == "" {
		membership = "free_trial"
	}
	writeField(&sb, "Membership", membership, inner)
	writeField(&sb, "Trial days left", fmt.Sprintf("%d", r.Subscription.DaysRemainingOnTrial), inner)

	sb.WriteString("\n")
	usageHeader := sectionHeaderStyle.Render("Usage")
	if r.Usage.StartOfMonth != "" {
		usageHeader += dimStyle.Render(" since " + formatTimestamp(r.Usage.StartOfMonth))
	}
	sb.WriteString(usageHeader)
	sb.WriteString("\n")
	sb.WriteString(renderBucket("Premium", r.Usage.PremiumUsed, r.Usage.PremiumLimit, r.Usage.PremiumStatus(), inner))
	sb.WriteString(renderBucket("Basic", r.Usage.BasicUsed, r.Usage.BasicLimit, r.Usage.BasicStatus(), inner))

	sb.WriteString("\n")
	sb.WriteString(sectionHeaderStyle.Render("Spending"))
	sb.WriteString("\n")
	sb.WriteString(renderTotals(r.Stats, r.EventsErr, inner))

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("updated %s · %s", formatFetchedAt(r.FetchedAt), r.DBPath)))

	return reportCardStyle.Width(width - 2).Render(sb.String())
}

// RenderModelStats renders the per-model breakdown of the usage events:
// a table sorted by request count and a bar chart of the busiest models.
func RenderModelStats(stats *core.AggregatedStats, width int) string {
	width = clampWidth(width)
	inner := width - 6

	var sb strings.Builder
	sb.WriteString(headerBrandStyle.Render("Usage by model"))
	sb.WriteString("\n\n")

	if stats == nil {
		sb.WriteString(dimStyle.Render("Detailed statistics unavailable."))
		return reportCardStyle.Width(width - 2).Render(sb.String())
	}
	if len(stats.Models) == 0 {
		sb.WriteString(dimStyle.Render("No usage events this period."))
		return reportCardStyle.Width(width - 2).Render(sb.String())
	}

	sb.WriteString(renderStatsTable(stats.Models, inner))
	sb.WriteString("\n")
	sb.WriteString(renderModelChart(stats.Models, inner))
	sb.WriteString("\n\n")
	sb.WriteString(renderTotals(stats, nil, inner))

	return reportCardStyle.Width(width - 2).Render(sb.String())
}

// RenderError renders err as a single styled line.
func RenderError(err error) string {
	return errorStyle.Render("✗ ") + valueStyle.Render(ErrorMessage(err))
}

func renderTitle(r monitor.Report, inner int) string {
	title := headerBrandStyle.Render("Cursor Monitor") + dimStyle.Render(" · ") + valueStyle.Render(r.Channel.DisplayName())
	if r.Switched {
		title += tealStyle.Render(" (switched)")
	}
	id := r.ID.String()
	if len(id) > 10 {
		id = id[len(id)-10:]
	}
	right := dimStyle.Render(id)
	gap := inner - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		return title
	}
	return title + strings.Repeat(" ", gap) + right
}

func writeField(sb *strings.Builder, label, value string, inner int) {
	sb.WriteString("  ")
	sb.WriteString(labelStyle.Render(padRight(label, labelColWidth)))
	sb.WriteString(valueStyle.Render(truncateToWidth(value, inner-labelColWidth-2)))
	sb.WriteString("\n")
}

func renderBucket(label string, used, limit int, status core.Status, inner int) string {
	counts := fmt.Sprintf("%s / %s", formatCount(int64(used)), formatLimit(limit))
	gaugeW := inner - labelColWidth - 2 - lipgloss.Width(counts) - 18
	if gaugeW > 30 {
		gaugeW = 30
	}
	gauge := RenderUsageGauge(core.UsedPercent(used, limit), gaugeW)
	return fmt.Sprintf("  %s%s  %s  %s\n",
		labelStyle.Render(padRight(label, labelColWidth)),
		gauge,
		lipgloss.NewStyle().Foreground(StatusColor(status)).Render(counts),
		StatusBadge(status),
	)
}

func renderTotals(stats *core.AggregatedStats, eventsErr error, inner int) string {
	if stats == nil {
		msg := "Detailed statistics unavailable."
		if eventsErr == nil {
			msg = "Detailed statistics not requested."
		}
		return "  " + dimStyle.Render(msg) + "\n"
	}
	var sb strings.Builder
	writeField(&sb, "Total requests", formatCount(int64(stats.TotalEvents)), inner)
	sb.WriteString("  " + labelStyle.Render(padRight("Actual spend", labelColWidth)) + costStyle.Render(formatUSD(stats.TotalCostUSD)) + "\n")
	sb.WriteString("  " + labelStyle.Render(padRight("Saved", labelColWidth)) + tealStyle.Render(formatUSD(stats.TotalSavedUSD)) + "\n")
	return sb.String()
}

func renderStatsTable(models []core.ModelStats, inner int) string {
	const (
		reqW  = 9
		costW = 11
		tokW  = 12
	)
	modelW := inner - reqW - costW - 2*tokW - 2
	if modelW < 8 {
		modelW = 8
	}

	var sb strings.Builder
	head := padRight("Model", modelW) + padLeft("Requests", reqW) + padLeft("Cost", costW) +
		padLeft("Input", tokW) + padLeft("Output", tokW)
	sb.WriteString("  " + labelStyle.Bold(true).Render(head) + "\n")

	for i, m := range models {
		name := lipgloss.NewStyle().Foreground(ModelColor(i)).Render(padRight(truncateToWidth(m.Model, modelW-1), modelW))
		sb.WriteString("  " + name +
			valueStyle.Render(padLeft(formatCount(int64(m.Count)), reqW)) +
			costStyle.Render(padLeft(formatUSDPrecise(m.TotalCostUSD), costW)) +
			dimStyle.Render(padLeft(formatCount(m.InputTokens), tokW)) +
			dimStyle.Render(padLeft(formatCount(m.OutputTokens), tokW)) +
			"\n")
	}
	return sb.String()
}

// renderModelChart draws one horizontal bar per model (request count),
// limited to the busiest models.
func renderModelChart(models []core.ModelStats, inner int) string {
	top := lo.Slice(models, 0, maxChartModels)
	data := lo.Map(top, func(m core.ModelStats, i int) barchart.BarData {
		return barchart.BarData{
			Label: truncateToWidth(m.Model, chartLabelMax),
			Values: []barchart.BarValue{{
				Name:  m.Model,
				Value: float64(m.Count),
				Style: lipgloss.NewStyle().Foreground(ModelColor(i)),
			}},
		}
	})

	chart := barchart.New(inner-2, len(data),
		barchart.WithDataSet(data),
		barchart.WithHorizontalBars(),
		barchart.WithBarGap(0),
		barchart.WithStyles(chartAxisStyle, chartLabelStyle),
	)
	chart.Draw()
	return chart.View()
}

// accountUserID prefers the subject reported by the account endpoint over the
// id decoded from the token.
func accountUserID(r monitor.Report) string {
	if r.Account.SubjectID != "" {
		return r.Account.SubjectID
	}
	return r.UserID
}

func clampWidth(width int) int {
	if width <= 0 {
		return defaultWidth
	}
	if width < minWidth {
		return minWidth
	}
	return width
}

// ErrorMessage maps pipeline errors to one human-readable line.
func ErrorMessage(err error) string {
	var apiErr *core.RemoteAPIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrSwitchDeclined):
		return "Channel switch cancelled."
	case errors.Is(err, core.ErrNotInstalled):
		return "No Cursor state database found. Make sure Cursor or Cursor Nightly is installed."
	case errors.Is(err, core.ErrTokenAbsent):
		return "No valid session token found. Sign in to Cursor first."
	case errors.Is(err, core.ErrUnsupportedPlatform):
		return "This platform is not supported: " + err.Error()
	case errors.Is(err, core.ErrDatabaseUnreachable), errors.Is(err, core.ErrDatabaseQueryFailed):
		return "Could not read the Cursor state database: " + err.Error()
	case core.IsAuthFailure(err):
		return "Cursor rejected the session token. Sign in to Cursor again."
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Failed to fetch usage: %s returned HTTP %d.", apiErr.Endpoint, apiErr.Status)
	default:
		return err.Error()
	}
}
