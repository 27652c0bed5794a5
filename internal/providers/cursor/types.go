package cursor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/parsers"
)

type authMeResp struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Sub           string `json:"sub"`
	UpdatedAt     string `json:"updated_at"`
}

func (r authMeResp) profile() core.AccountProfile {
	return core.AccountProfile{
		Email:         r.Email,
		EmailVerified: r.EmailVerified,
		Name:          r.Name,
		SubjectID:     r.Sub,
		UpdatedAt:     r.UpdatedAt,
	}
}

type stripeProfileResp struct {
	MembershipType       string             `json:"membershipType"`
	DaysRemainingOnTrial parsers.FlexNumber `json:"daysRemainingOnTrial"`
}

func (r stripeProfileResp) profile() core.SubscriptionProfile {
	return core.SubscriptionProfile{
		MembershipType:       r.MembershipType,
		DaysRemainingOnTrial: r.DaysRemainingOnTrial.Int(),
	}
}

type modelCounterResp struct {
	NumRequests      parsers.FlexNumber `json:"numRequests"`
	NumRequestsTotal parsers.FlexNumber `json:"numRequestsTotal"`
	NumTokens        parsers.FlexNumber `json:"numTokens"`
	MaxRequestUsage  parsers.FlexNumber `json:"maxRequestUsage"`
	MaxTokenUsage    parsers.FlexNumber `json:"maxTokenUsage"`
}

// usageResp is the /api/usage body: model name to counters, plus scalar
// entries such as "startOfMonth" that are not model counters.
type usageResp map[string]json.RawMessage

func (r usageResp) summary() core.UsageSummary {
	counters := make(map[string]core.ModelCounter, len(r))
	var startOfMonth string

	for key, raw := range r {
		raw = bytes.TrimSpace(raw)
		if key == "startOfMonth" {
			_ = json.Unmarshal(raw, &startOfMonth)
			continue
		}
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var c modelCounterResp
		if err := json.Unmarshal(raw, &c); err != nil {
			log.Printf("[cursor] skipping usage entry %q: %v", key, err)
			continue
		}
		counters[key] = core.ModelCounter{
			NumRequestsTotal: c.NumRequestsTotal.Int(),
			MaxRequestUsage:  c.MaxRequestUsage.Int(),
		}
	}

	summary := core.SummarizeUsage(counters)
	summary.StartOfMonth = startOfMonth
	return summary
}

type tokenUsageResp struct {
	InputTokens      parsers.FlexNumber `json:"inputTokens"`
	OutputTokens     parsers.FlexNumber `json:"outputTokens"`
	CacheWriteTokens parsers.FlexNumber `json:"cacheWriteTokens"`
	CacheReadTokens  parsers.FlexNumber `json:"cacheReadTokens"`
	TotalCents       parsers.FlexNumber `json:"totalCents"`
}

type usageEventResp struct {
	Timestamp     parsers.FlexNumber `json:"timestamp"`
	Model         string             `json:"model"`
	Kind          string             `json:"kind"`
	RequestsCosts parsers.FlexNumber `json:"requestsCosts"`
	TokenUsage    *tokenUsageResp    `json:"tokenUsage"`
}

type usageEventsResp struct {
	UsageEventsDisplay    []usageEventResp   `json:"usageEventsDisplay"`
	TotalUsageEventsCount parsers.FlexNumber `json:"totalUsageEventsCount"`
}

func (r usageEventsResp) page() (core.UsageEventPage, error) {
	if r.UsageEventsDisplay == nil {
		return core.UsageEventPage{}, fmt.Errorf("response has no usageEventsDisplay")
	}
	page := core.UsageEventPage{
		Events:     make([]core.UsageEvent, 0, len(r.UsageEventsDisplay)),
		TotalCount: r.TotalUsageEventsCount.Int(),
	}
	for _, e := range r.UsageEventsDisplay {
		ev := core.UsageEvent{
			Model:       e.Model,
			TimestampMs: e.Timestamp.Int64(),
			RequestCost: e.RequestsCosts.Float(),
		}
		if tu := e.TokenUsage; tu != nil {
			ev.TokenUsage = core.TokenUsage{
				InputTokens:      tu.InputTokens.Int64(),
				OutputTokens:     tu.OutputTokens.Int64(),
				CacheWriteTokens: tu.CacheWriteTokens.Int64(),
				CacheReadTokens:  tu.CacheReadTokens.Int64(),
				TotalCostCents:   tu.TotalCents.Float(),
			}
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}
