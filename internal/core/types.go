package core

type Status string

const (
	StatusOK        Status = "OK"
	StatusNearLimit Status = "NEAR_LIMIT"
	StatusLimited   Status = "LIMITED"
	StatusUnlimited Status = "UNLIMITED"
)

// UnlimitedRequests is the limit reported for a bucket without a finite cap.
// A zero, null or absent maxRequestUsage is normalized to this value.
const UnlimitedRequests = 999999

func IsUnlimited(limit int) bool {
	return limit <= 0 || limit >= UnlimitedRequests
}

type Bucket string

const (
	BucketPremium Bucket = "premium"
	BucketBasic   Bucket = "basic"
)

// DBLocation is the resolved state database for one channel. Never persisted.
type DBLocation struct {
	Path    string  `json:"path"`
	Channel Channel `json:"channel"`
	Exists  bool    `json:"exists"`
}

type ModelUsage struct {
	Model    string `json:"model"`
	Bucket   Bucket `json:"bucket"`
	Requests int    `json:"requests"`
	Limit    int    `json:"limit"`
}

type UsageSummary struct {
	PremiumUsed  int          `json:"premium_used"`
	PremiumLimit int          `json:"premium_limit"`
	BasicUsed    int          `json:"basic_used"`
	BasicLimit   int          `json:"basic_limit"`
	Models       []ModelUsage `json:"models,omitempty"`
	StartOfMonth string       `json:"start_of_month,omitempty"`
}

func (u UsageSummary) PremiumStatus() Status { return bucketStatus(u.PremiumUsed, u.PremiumLimit) }

func (u UsageSummary) BasicStatus() Status { return bucketStatus(u.BasicUsed, u.BasicLimit) }

// UsedPercent returns the consumed share of limit in percent, or -1 when the
// limit is unlimited.
func UsedPercent(used, limit int) float64 {
	if IsUnlimited(limit) {
		return -1
	}
	return float64(used) / float64(limit) * 100
}

func bucketStatus(used, limit int) Status {
	pct := UsedPercent(used, limit)
	switch {
	case pct < 0:
		return StatusUnlimited
	case pct >= 100:
		return StatusLimited
	case pct >= 80:
		return StatusNearLimit
	default:
		return StatusOK
	}
}

// AccountProfile mirrors /api/auth/me. Every field is optional upstream;
// empty values are rendered as "N/A" by the presentation layer.
type AccountProfile struct {
	Email         string `json:"email,omitempty"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	SubjectID     string `json:"sub,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type SubscriptionProfile struct {
	MembershipType       string `json:"membership_type,omitempty"`
	DaysRemainingOnTrial int    `json:"days_remaining_on_trial"`
}

type TokenUsage struct {
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	TotalCostCents   float64 `json:"total_cost_cents"`
}

type UsageEvent struct {
	Model       string     `json:"model"`
	TimestampMs int64      `json:"timestamp_ms"`
	RequestCost float64    `json:"request_cost"`
	TokenUsage  TokenUsage `json:"token_usage"`
}

// UsageEventPage is one response of the detailed usage-events endpoint.
type UsageEventPage struct {
	Events     []UsageEvent `json:"events"`
	TotalCount int          `json:"total_count"`
}

type ModelStats struct {
	Model        string  `json:"model"`
	Count        int     `json:"count"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
}

// AggregatedStats is the fold of a usage-event sequence. Models is ordered by
// descending Count, ties in first-seen order.
type AggregatedStats struct {
	Models        []ModelStats `json:"models"`
	TotalEvents   int          `json:"total_events"`
	TotalCostUSD  float64      `json:"total_cost_usd"`
	TotalSavedUSD float64      `json:"total_saved_usd"`
}
