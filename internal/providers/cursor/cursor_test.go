package cursor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/janekbaraniewski/cursor-monitor/internal/auth"
	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

func testToken() string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"auth0|abc123"}`)) + ".sig"
}

type fakeDashboard struct {
	mux *http.ServeMux

	mu       sync.Mutex
	requests map[string]*http.Request
	bodies   map[string]string
}

func newFakeDashboard(t *testing.T) *fakeDashboard {
	t.Helper()
	f := &fakeDashboard{
		mux:      http.NewServeMux(),
		requests: make(map[string]*http.Request),
		bodies:   make(map[string]string),
	}

	f.handle(pathAuthMe, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"email":          "dev@example.com",
			"email_verified": true,
			"name":           "Dev Example",
			"sub":            "auth0|abc123",
			"updated_at":     "2024-12-17T08:30:00.000Z",
		})
	})
	f.handle(pathStripe, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"membershipType":       "pro",
			"daysRemainingOnTrial": 0,
		})
	})
	f.handle(pathUsage, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"gpt-4": {"numRequests": 120, "numRequestsTotal": 120, "numTokens": 98000, "maxRequestUsage": 500, "maxTokenUsage": null},
			"gpt-3.5-turbo": {"numRequests": 7, "numRequestsTotal": 7, "numTokens": 1200, "maxRequestUsage": null, "maxTokenUsage": null},
			"gpt-4-32k": {"numRequests": 0, "numRequestsTotal": 0, "numTokens": 0, "maxRequestUsage": 50, "maxTokenUsage": null},
			"startOfMonth": "2024-12-01T00:00:00.000Z"
		}`)
	})
	f.handle(pathUsageEvents, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"totalUsageEventsCount": 3,
			"usageEventsDisplay": [
				{"timestamp": "1736899200000", "model": "claude-3.5-sonnet", "requestsCosts": 0.04,
				 "tokenUsage": {"inputTokens": 1200, "outputTokens": 300, "cacheWriteTokens": "0", "cacheReadTokens": 10, "totalCents": 2.5}},
				{"timestamp": "1736899300000", "model": "claude-3.5-sonnet", "requestsCosts": 0.04,
				 "tokenUsage": {"inputTokens": 800, "outputTokens": 100, "totalCents": 1.5}},
				{"timestamp": "1736899400000", "model": "cursor-small", "requestsCosts": 0}
			]
		}`)
	})
	return f
}

func (f *fakeDashboard) handle(path string, h http.HandlerFunc) {
	f.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests[path] = r
		f.bodies[path] = string(body)
		f.mu.Unlock()
		h(w, r)
	})
}

func (f *fakeDashboard) override(path string, h http.HandlerFunc) {
	f.mux = rebuildMux(f, path, h)
}

// rebuildMux replaces one route; ServeMux does not allow re-registration.
func rebuildMux(f *fakeDashboard, path string, h http.HandlerFunc) *http.ServeMux {
	old := f.mux
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == path {
			f.mu.Lock()
			f.requests[path] = r
			f.mu.Unlock()
			h(w, r)
			return
		}
		old.ServeHTTP(w, r)
	})
	return mux
}

func (f *fakeDashboard) request(path string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func newTestClient(server *httptest.Server) *Client {
	c := NewClient()
	c.HTTPClient = server.Client()
	c.WebBaseURL = server.URL
	c.APIBaseURL = server.URL + "/"
	return c
}

func TestFetchDashboard(t *testing.T) {
	f := newFakeDashboard(t)
	server := httptest.NewServer(f.mux)
	defer server.Close()

	token := testToken()
	creds := auth.NewCredentials(token)
	dash, err := newTestClient(server).FetchDashboard(context.Background(), creds, true)
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}

	if dash.Account.Email != "dev@example.com" || dash.Account.SubjectID != "auth0|abc123" {
		t.Errorf("unexpected account: %+v", dash.Account)
	}
	if dash.Account.EmailVerified == nil || !*dash.Account.EmailVerified {
		t.Error("expected email_verified=true")
	}
	if dash.Subscription.MembershipType != "pro" {
		t.Errorf("MembershipType = %q", dash.Subscription.MembershipType)
	}

	u := dash.Usage
	if u.PremiumUsed != 120 || u.PremiumLimit != 500 {
		t.Errorf("premium = %d/%d, want 120/500", u.PremiumUsed, u.PremiumLimit)
	}
	if u.BasicUsed != 7 || u.BasicLimit != core.UnlimitedRequests {
		t.Errorf("basic = %d/%d, want 7/unlimited", u.BasicUsed, u.BasicLimit)
	}
	if u.StartOfMonth != "2024-12-01T00:00:00.000Z" {
		t.Errorf("StartOfMonth = %q", u.StartOfMonth)
	}
	if len(u.Models) != 3 {
		t.Errorf("Models = %d, want 3 (startOfMonth skipped)", len(u.Models))
	}

	if dash.Events == nil {
		t.Fatalf("expected events page, EventsErr=%v", dash.EventsErr)
	}
	if dash.Events.TotalCount != 3 || len(dash.Events.Events) != 3 {
		t.Errorf("unexpected events page: %+v", dash.Events)
	}
	first := dash.Events.Events[0]
	if first.TimestampMs != 1736899200000 || first.TokenUsage.InputTokens != 1200 || first.TokenUsage.TotalCostCents != 2.5 {
		t.Errorf("unexpected first event: %+v", first)
	}

	me := f.request(pathAuthMe)
	if got := me.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("auth/me Authorization = %q", got)
	}
	if got := me.Header.Get("Cookie"); got != "WorkosCursorSessionToken=abc123%3A%3A"+token {
		t.Errorf("auth/me Cookie = %q", got)
	}
	if got := me.Header.Get("User-Agent"); got != DefaultUserAgent {
		t.Errorf("User-Agent = %q", got)
	}

	stripe := f.request(pathStripe)
	if stripe.Header.Get("Cookie") != "" {
		t.Error("stripe profile must be called with the bearer token only")
	}
	if stripe.Header.Get("Authorization") != "Bearer "+token {
		t.Error("stripe profile missing bearer token")
	}

	usage := f.request(pathUsage)
	if got := usage.URL.Query().Get("user"); got != "abc123" {
		t.Errorf("usage ?user = %q, want abc123", got)
	}

	events := f.request(pathUsageEvents)
	if events.Method != http.MethodPost {
		t.Errorf("events method = %s, want POST", events.Method)
	}
	f.mu.Lock()
	body := f.bodies[pathUsageEvents]
	f.mu.Unlock()
	if body != "{}" {
		t.Errorf("events body = %q, want {}", body)
	}
}

func TestFetchDashboard_WithoutEvents(t *testing.T) {
	f := newFakeDashboard(t)
	server := httptest.NewServer(f.mux)
	defer server.Close()

	dash, err := newTestClient(server).FetchDashboard(context.Background(), auth.NewCredentials(testToken()), false)
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
	if dash.Events != nil || dash.EventsErr != nil {
		t.Errorf("events should not be fetched: %+v / %v", dash.Events, dash.EventsErr)
	}
	if f.request(pathUsageEvents) != nil {
		t.Error("events endpoint was called")
	}
}

func TestFetchDashboard_EventsFailureIsSwallowed(t *testing.T) {
	f := newFakeDashboard(t)
	f.override(pathUsageEvents, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	})
	server := httptest.NewServer(f.mux)
	defer server.Close()

	dash, err := newTestClient(server).FetchDashboard(context.Background(), auth.NewCredentials(testToken()), true)
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
	if dash.Events != nil {
		t.Error("expected no events page")
	}
	if !errors.Is(dash.EventsErr, core.ErrOptionalFeatureUnavailable) {
		t.Errorf("EventsErr = %v, want ErrOptionalFeatureUnavailable", dash.EventsErr)
	}
	if dash.Usage.PremiumUsed != 120 {
		t.Error("usage summary should still be available")
	}
}

func TestFetchDashboard_EventsMalformedBody(t *testing.T) {
	f := newFakeDashboard(t)
	f.override(pathUsageEvents, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"somethingElse": true}`)
	})
	server := httptest.NewServer(f.mux)
	defer server.Close()

	dash, err := newTestClient(server).FetchDashboard(context.Background(), auth.NewCredentials(testToken()), true)
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
	if dash.Events != nil || !errors.Is(dash.EventsErr, core.ErrOptionalFeatureUnavailable) {
		t.Errorf("expected optional failure, got %+v / %v", dash.Events, dash.EventsErr)
	}
}

func TestFetchDashboard_EventsTimeout(t *testing.T) {
	f := newFakeDashboard(t)
	release := make(chan struct{})
	f.override(pathUsageEvents, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	server := httptest.NewServer(f.mux)
	defer server.Close()
	defer close(release)

	client := newTestClient(server)
	client.EventsTimeout = 50 * time.Millisecond

	start := time.Now()
	dash, err := client.FetchDashboard(context.Background(), auth.NewCredentials(testToken()), true)
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
	if !errors.Is(dash.EventsErr, context.DeadlineExceeded) {
		t.Errorf("EventsErr = %v, want deadline exceeded", dash.EventsErr)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("events timeout not applied, took %v", elapsed)
	}
}

func TestFetchDashboard_RequiredFailure(t *testing.T) {
	f := newFakeDashboard(t)
	f.override(pathUsage, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_authenticated"}`, http.StatusUnauthorized)
	})
	server := httptest.NewServer(f.mux)
	defer server.Close()

	_, err := newTestClient(server).FetchDashboard(context.Background(), auth.NewCredentials(testToken()), true)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *core.RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want RemoteAPIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Endpoint != pathUsage {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
	if !strings.Contains(apiErr.Body, "not_authenticated") {
		t.Errorf("Body = %q, want raw response body", apiErr.Body)
	}
	if !core.IsAuthFailure(err) {
		t.Error("IsAuthFailure() = false, want true")
	}
}

func TestFetchAccount_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchAccount(context.Background(), auth.NewCredentials(testToken()))
	var apiErr *core.RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want RemoteAPIError", err)
	}
	if apiErr.Status != http.StatusOK || apiErr.Body != "" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestFetchUsage_NoUserQueryWithoutSubject(t *testing.T) {
	var gotQuery string
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotCookie = r.Header.Get("Cookie")
		io.WriteString(w, `{"gpt-4": {"numRequestsTotal": 3, "maxRequestUsage": 50}}`)
	}))
	defer server.Close()

	summary, err := newTestClient(server).FetchUsage(context.Background(), auth.NewCredentials("opaque-token"))
	if err != nil {
		t.Fatalf("FetchUsage() error: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want none", gotQuery)
	}
	if gotCookie != "WorkosCursorSessionToken="+auth.PlaceholderUserID+"%3A%3Aopaque-token" {
		t.Errorf("Cookie = %q", gotCookie)
	}
	if summary.PremiumUsed != 3 || summary.PremiumLimit != 50 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

// All required calls must be in flight at the same time: each handler waits
// until the other two have arrived.
func TestFetchDashboard_Concurrent(t *testing.T) {
	var (
		mu      sync.Mutex
		arrived int
		all     = make(chan struct{})
	)
	barrier := func(w http.ResponseWriter, r *http.Request) bool {
		mu.Lock()
		arrived++
		if arrived == 3 {
			close(all)
		}
		mu.Unlock()
		select {
		case <-all:
			return true
		case <-time.After(2 * time.Second):
			http.Error(w, "calls were serialized", http.StatusServiceUnavailable)
			return false
		}
	}

	f := newFakeDashboard(t)
	for _, p := range []string{pathAuthMe, pathStripe, pathUsage} {
		path := p
		f.override(path, func(w http.ResponseWriter, r *http.Request) {
			if !barrier(w, r) {
				return
			}
			switch path {
			case pathUsage:
				io.WriteString(w, `{}`)
			default:
				io.WriteString(w, `{"email":"x@example.com","membershipType":"free"}`)
			}
		})
	}
	server := httptest.NewServer(f.mux)
	defer server.Close()

	if _, err := newTestClient(server).FetchDashboard(context.Background(), auth.NewCredentials(testToken()), false); err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "short", n: 10, want: "short"},
		{in: "abcdef", n: 3, want: "abc..."},
		{in: "abécd", n: 3, want: "ab..."},
		{in: "你好", n: 4, want: "你..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}

func TestFetchUsage_ErrorBodyStaysValidUTF8(t *testing.T) {
	body := strings.Repeat("é", maxErrorBody)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "x"+body)
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchUsage(context.Background(), auth.NewCredentials(testToken()))
	var apiErr *core.RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want RemoteAPIError", err)
	}
	if !utf8.ValidString(apiErr.Body) {
		t.Errorf("Body is not valid UTF-8: %q", apiErr.Body)
	}
	if !strings.HasPrefix(apiErr.Body, "xé") || !strings.HasSuffix(apiErr.Body, "...") {
		t.Errorf("Body = %q", apiErr.Body)
	}
}
