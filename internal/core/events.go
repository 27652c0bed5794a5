package core

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

const unknownModel = "unknown"

// EventCostUSD is what the request actually cost.
func EventCostUSD(e UsageEvent) float64 {
	return e.TokenUsage.TotalCostCents / 100
}

// EventSavedUSD is the list request cost minus the actual cost. It is not
// clamped and goes negative when the actual cost exceeds the list cost.
func EventSavedUSD(e UsageEvent) float64 {
	return e.RequestCost - EventCostUSD(e)
}

func AggregateEvents(events []UsageEvent) AggregatedStats {
	stats := AggregatedStats{
		Models:      []ModelStats{},
		TotalEvents: len(events),
	}
	if len(events) == 0 {
		return stats
	}

	stats.TotalCostUSD = lo.SumBy(events, EventCostUSD)
	stats.TotalSavedUSD = lo.SumBy(events, EventSavedUSD)

	index := make(map[string]int)
	for _, e := range events {
		model := strings.TrimSpace(e.Model)
		if model == "" {
			model = unknownModel
		}
		i, ok := index[model]
		if !ok {
			i = len(stats.Models)
			index[model] = i
			stats.Models = append(stats.Models, ModelStats{Model: model})
		}
		m := &stats.Models[i]
		m.Count++
		m.TotalCostUSD += EventCostUSD(e)
		m.InputTokens += e.TokenUsage.InputTokens
		m.OutputTokens += e.TokenUsage.OutputTokens
	}

	sort.SliceStable(stats.Models, func(a, b int) bool {
		return stats.Models[a].Count > stats.Models[b].Count
	})
	return stats
}

// AggregatePage aggregates one events page. The server-side total wins over
// the page length when it is larger, since the page may be truncated.
func AggregatePage(page UsageEventPage) AggregatedStats {
	stats := AggregateEvents(page.Events)
	if page.TotalCount > stats.TotalEvents {
		stats.TotalEvents = page.TotalCount
	}
	return stats
}
