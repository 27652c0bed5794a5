package core

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// premiumModelMarkers are substrings identifying models billed against the
// premium request quota.
var premiumModelMarkers = []string{
	"gpt-4",
	"claude-3.5-sonnet",
	"o1",
	"claude-3-5-sonnet",
}

func ClassifyModel(model string) Bucket {
	name := strings.ToLower(model)
	if lo.SomeBy(premiumModelMarkers, func(marker string) bool {
		return strings.Contains(name, marker)
	}) {
		return BucketPremium
	}
	return BucketBasic
}

// ModelCounter is the per-model entry of the usage counters endpoint.
type ModelCounter struct {
	NumRequestsTotal int
	MaxRequestUsage  int
}

// SummarizeUsage folds per-model counters into premium and basic buckets.
// Counts are summed, limits take the bucket maximum, and a bucket whose
// limit ends up zero is reported as UnlimitedRequests.
func SummarizeUsage(counters map[string]ModelCounter) UsageSummary {
	var summary UsageSummary

	names := lo.Keys(counters)
	sort.Strings(names)

	for _, name := range names {
		c := counters[name]
		bucket := ClassifyModel(name)
		switch bucket {
		case BucketPremium:
			summary.PremiumUsed += c.NumRequestsTotal
			summary.PremiumLimit = max(summary.PremiumLimit, c.MaxRequestUsage)
		default:
			summary.BasicUsed += c.NumRequestsTotal
			summary.BasicLimit = max(summary.BasicLimit, c.MaxRequestUsage)
		}
		summary.Models = append(summary.Models, ModelUsage{
			Model:    name,
			Bucket:   bucket,
			Requests: c.NumRequestsTotal,
			Limit:    normalizeLimit(c.MaxRequestUsage),
		})
	}

	summary.PremiumLimit = normalizeLimit(summary.PremiumLimit)
	summary.BasicLimit = normalizeLimit(summary.BasicLimit)
	return summary
}

func normalizeLimit(limit int) int {
	if IsUnlimited(limit) {
		return UnlimitedRequests
	}
	return limit
}
