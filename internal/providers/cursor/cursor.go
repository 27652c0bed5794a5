// Package cursor talks to the Cursor web dashboard and api2 endpoints on
// behalf of a locally stored session token.
package cursor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/janekbaraniewski/cursor-monitor/internal/auth"
	"github.com/janekbaraniewski/cursor-monitor/internal/core"
	"github.com/janekbaraniewski/cursor-monitor/internal/parsers"
)

const (
	DefaultWebBaseURL    = "https://www.cursor.com"
	DefaultAPIBaseURL    = "https://api2.cursor.sh"
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.130 Safari/537.36"
	DefaultEventsTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
	maxErrorBody     = 512
)

const (
	pathUsage       = "/api/usage"
	pathAuthMe      = "/api/auth/me"
	pathStripe      = "/auth/full_stripe_profile"
	pathUsageEvents = "/api/dashboard/get-filtered-usage-events"
)

// Client issues single-attempt requests; there is no retry policy.
type Client struct {
	HTTPClient    *http.Client
	WebBaseURL    string
	APIBaseURL    string
	UserAgent     string
	EventsTimeout time.Duration
}

func NewClient() *Client {
	return &Client{
		HTTPClient:    http.DefaultClient,
		WebBaseURL:    DefaultWebBaseURL,
		APIBaseURL:    DefaultAPIBaseURL,
		UserAgent:     DefaultUserAgent,
		EventsTimeout: DefaultEventsTimeout,
	}
}

// Dashboard joins the results of one round of dashboard calls. Events is nil
// when detailed statistics were not requested or could not be fetched; in
// the latter case EventsErr wraps core.ErrOptionalFeatureUnavailable.
type Dashboard struct {
	Account      core.AccountProfile
	Subscription core.SubscriptionProfile
	Usage        core.UsageSummary
	Events       *core.UsageEventPage
	EventsErr    error
}

// FetchDashboard runs the account, subscription and usage calls (and the
// events call when withEvents is set) concurrently and waits for all of them.
// Failures of the required calls are joined into the returned error.
func (c *Client) FetchDashboard(ctx context.Context, creds auth.Credentials, withEvents bool) (Dashboard, error) {
	var (
		wg                       sync.WaitGroup
		dash                     Dashboard
		accErr, subErr, usageErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		dash.Account, accErr = c.FetchAccount(ctx, creds)
	}()
	go func() {
		defer wg.Done()
		dash.Subscription, subErr = c.FetchSubscription(ctx, creds)
	}()
	go func() {
		defer wg.Done()
		dash.Usage, usageErr = c.FetchUsage(ctx, creds)
	}()

	if withEvents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := c.FetchUsageEvents(ctx, creds)
			if err != nil {
				log.Printf("[cursor] detailed usage events unavailable: %v", err)
				dash.EventsErr = fmt.Errorf("%w: %w", core.ErrOptionalFeatureUnavailable, err)
				return
			}
			dash.Events = &page
		}()
	}

	wg.Wait()
	return dash, errors.Join(accErr, subErr, usageErr)
}

func (c *Client) FetchAccount(ctx context.Context, creds auth.Credentials) (core.AccountProfile, error) {
	var resp authMeResp
	if err := c.callJSON(ctx, http.MethodGet, c.webURL(pathAuthMe), creds, true, nil, &resp); err != nil {
		return core.AccountProfile{}, err
	}
	return resp.profile(), nil
}

// FetchSubscription sends the bearer token only; the api2 host ignores the
// dashboard cookie.
func (c *Client) FetchSubscription(ctx context.Context, creds auth.Credentials) (core.SubscriptionProfile, error) {
	var resp stripeProfileResp
	if err := c.callJSON(ctx, http.MethodGet, c.apiURL(pathStripe), creds, false, nil, &resp); err != nil {
		return core.SubscriptionProfile{}, err
	}
	return resp.profile(), nil
}

func (c *Client) FetchUsage(ctx context.Context, creds auth.Credentials) (core.UsageSummary, error) {
	endpoint := c.webURL(pathUsage)
	if creds.UserID != "" {
		endpoint += "?user=" + url.QueryEscape(creds.UserID)
	}
	var resp usageResp
	if err := c.callJSON(ctx, http.MethodGet, endpoint, creds, true, nil, &resp); err != nil {
		return core.UsageSummary{}, err
	}
	return resp.summary(), nil
}

// FetchUsageEvents posts an empty filter to the dashboard events endpoint,
// bounded by EventsTimeout.
func (c *Client) FetchUsageEvents(ctx context.Context, creds auth.Credentials) (core.UsageEventPage, error) {
	timeout := c.EventsTimeout
	if timeout <= 0 {
		timeout = DefaultEventsTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp usageEventsResp
	if err := c.callJSON(ctx, http.MethodPost, c.webURL(pathUsageEvents), creds, true, []byte("{}"), &resp); err != nil {
		return core.UsageEventPage{}, err
	}
	page, err := resp.page()
	if err != nil {
		return core.UsageEventPage{}, fmt.Errorf("%s: %w", pathUsageEvents, err)
	}
	return page, nil
}

func (c *Client) callJSON(ctx context.Context, method, endpoint string, creds auth.Credentials, withCookie bool, body []byte, result interface{}) error {
	data, err := c.do(ctx, method, endpoint, creds, withCookie, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%s: decoding response: %w", endpointPath(endpoint), err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, creds auth.Credentials, withCookie bool, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", creds.BearerHeader())
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withCookie {
		req.Header.Set("Cookie", creds.Cookie)
	}
	log.Printf("[cursor] %s %s headers=%v", method, endpointPath(endpoint), parsers.RedactHeaders(req.Header))

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpointPath(endpoint), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", endpointPath(endpoint), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.RemoteAPIError{
			Endpoint: endpointPath(endpoint),
			Status:   resp.StatusCode,
			Body:     truncate(strings.TrimSpace(string(data)), maxErrorBody),
		}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &core.RemoteAPIError{Endpoint: endpointPath(endpoint), Status: resp.StatusCode}
	}
	return trimmed, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

func (c *Client) webURL(path string) string {
	base := c.WebBaseURL
	if base == "" {
		base = DefaultWebBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (c *Client) apiURL(path string) string {
	base := c.APIBaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func endpointPath(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Path == "" {
		return endpoint
	}
	return u.Path
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
