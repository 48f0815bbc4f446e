package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/generation"
	"github.com/jonathan/campaign-briefing/internal/pipeline"
	"github.com/jonathan/campaign-briefing/internal/server/ratelimit"
	"github.com/jonathan/campaign-briefing/internal/types"
)

// stubBriefer counts calls and returns canned results
type stubBriefer struct {
	mu            sync.Mutex
	topicCalls    int
	deepDiveCalls int
	lastIssue     string
	lastCategory  types.Category
	topicErr      error
	deepDiveErr   error
	events        []pipeline.ProgressEvent
}

func (b *stubBriefer) TopicBriefing(ctx context.Context, issue string) (*types.ArticleSearchResult, error) {
	return b.TopicBriefingWithProgress(ctx, issue, nil)
}

func (b *stubBriefer) TopicBriefingWithProgress(_ context.Context, issue string, onProgress pipeline.ProgressCallback) (*types.ArticleSearchResult, error) {
	b.mu.Lock()
	b.topicCalls++
	b.lastIssue = issue
	b.mu.Unlock()

	if onProgress != nil {
		for _, e := range b.events {
			onProgress(e)
		}
	}
	if b.topicErr != nil {
		return nil, b.topicErr
	}
	return &types.ArticleSearchResult{
		Issue:   issue,
		Summary: "Coverage of " + issue + " across regional outlets this week.",
		Articles: []types.IssueArticle{
			{Title: "Rents climb again", Link: "https://news.example.com/rents", Source: "Example News"},
		},
	}, nil
}

func (b *stubBriefer) DeepDive(_ context.Context, _ types.ExpandedMetrics, category types.Category) (*types.DeepDiveResult, error) {
	b.mu.Lock()
	b.deepDiveCalls++
	b.lastCategory = category
	b.mu.Unlock()

	if b.deepDiveErr != nil {
		return nil, b.deepDiveErr
	}
	return &types.DeepDiveResult{
		Insights: map[types.Category]types.InsightBlock{
			category: {Headline: "Steady growth", Summary: "Totals rose every month of the quarter.", Bullets: []string{"one", "two", "three"}},
		},
		Chart: types.AxisSingleChart{
			ChartBase:  types.ChartBase{ID: "chart-1", Title: "Raised by month", Narrative: "Donations grew steadily across the quarter."},
			Kind:       types.ChartBar,
			Categories: []string{"2024-01", "2024-02"},
			Values:     []float64{100, 75},
		},
	}, nil
}

func newTestServer(t *testing.T, briefer Briefer, rl *ratelimit.Config) (*Server, *prometheus.Registry) {
	t.Helper()
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	reg := prometheus.NewRegistry()
	s, err := New(Config{
		RateLimit: rl,
		Registry:  reg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, briefer)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return s, reg
}

func do(t *testing.T, s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const metricsBody = `{"donations":[{"name":"Ann","city":"Austin","state":"TX","age":40,"amountUSD":100,"date":"2024-01-05"}],"volunteerCountsByMonth":[{"month":"2024-01","count":4}],"events":[]}`

func TestNew_RequiresBriefer(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubBriefer{}, nil)

	rec := do(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestArticlesEndpoint_CachesByIssue(t *testing.T) {
	briefer := &stubBriefer{}
	s, _ := newTestServer(t, briefer, nil)

	first := do(t, s, http.MethodGet, "/issues/Housing%20Costs/articles", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(cacheHeader))
	assert.Equal(t, "application/json", first.Header().Get("Content-Type"))

	var result types.ArticleSearchResult
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &result))
	assert.Equal(t, "Housing Costs", result.Issue)
	assert.Len(t, result.Articles, 1)

	second := do(t, s, http.MethodGet, "/issues/housing%20costs/articles", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(cacheHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, briefer.topicCalls)
}

func TestArticlesEndpoint_BlankIssue(t *testing.T) {
	briefer := &stubBriefer{}
	s, _ := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodGet, "/issues/%20/articles", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, briefer.topicCalls)
}

func TestArticlesEndpoint_UpstreamFailureIsOpaque(t *testing.T) {
	briefer := &stubBriefer{topicErr: &generation.TransportError{
		Operation: "Article selection",
		Attempts:  3,
		Cause:     errors.New("401 Unauthorized: key sk-secret"),
	}}
	s, _ := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodGet, "/issues/housing/articles", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"temporarily unavailable"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "sk-secret")
}

func TestArticlesEndpoint_ErrorsAreNotCached(t *testing.T) {
	briefer := &stubBriefer{topicErr: &feeds.NoCandidatesError{Sources: 3, Failed: 3}}
	s, _ := newTestServer(t, briefer, nil)

	do(t, s, http.MethodGet, "/issues/housing/articles", nil)
	briefer.topicErr = nil
	rec := do(t, s, http.MethodGet, "/issues/housing/articles", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, briefer.topicCalls)
}

func TestArticlesEndpoint_InputErrorIs400(t *testing.T) {
	briefer := &stubBriefer{topicErr: &pipeline.InputError{Field: "issue", Message: "must not be empty"}}
	s, _ := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodGet, "/issues/x/articles", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid issue")
}

func TestDeepDiveEndpoint(t *testing.T) {
	briefer := &stubBriefer{}
	s, _ := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodPost, "/deep-dive/donors", strings.NewReader(metricsBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CategoryDonors, briefer.lastCategory)

	var result types.DeepDiveResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	chart, ok := result.Chart.(types.AxisSingleChart)
	require.True(t, ok)
	assert.Equal(t, "chart-1", chart.ID)
	assert.Contains(t, result.Insights, types.CategoryDonors)
}

func TestDeepDiveEndpoint_CacheKeyIncludesBody(t *testing.T) {
	briefer := &stubBriefer{}
	s, _ := newTestServer(t, briefer, nil)

	do(t, s, http.MethodPost, "/deep-dive/donors", strings.NewReader(metricsBody))
	hit := do(t, s, http.MethodPost, "/deep-dive/donors", strings.NewReader(metricsBody))
	assert.Equal(t, "HIT", hit.Header().Get(cacheHeader))
	assert.Equal(t, 1, briefer.deepDiveCalls)

	other := do(t, s, http.MethodPost, "/deep-dive/events", strings.NewReader(metricsBody))
	assert.Equal(t, "MISS", other.Header().Get(cacheHeader))

	changed := strings.Replace(metricsBody, `"count":4`, `"count":5`, 1)
	miss := do(t, s, http.MethodPost, "/deep-dive/donors", strings.NewReader(changed))
	assert.Equal(t, "MISS", miss.Header().Get(cacheHeader))
	assert.Equal(t, 3, briefer.deepDiveCalls)
}

func TestDeepDiveEndpoint_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"unknown category", "/deep-dive/budget", metricsBody},
		{"invalid JSON", "/deep-dive/donors", `{"donations":`},
		{"too large", "/deep-dive/donors", `{"donations":[` + strings.Repeat(" ", maxMetricsBodyBytes) + `]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			briefer := &stubBriefer{}
			s, _ := newTestServer(t, briefer, nil)

			rec := do(t, s, http.MethodPost, tt.target, strings.NewReader(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, briefer.deepDiveCalls)
		})
	}
}

func TestDeepDiveEndpoint_SchemaFailure(t *testing.T) {
	briefer := &stubBriefer{deepDiveErr: &generation.SchemaValidationError{Operation: "Deep dive"}}
	s, reg := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodPost, "/deep-dive/volunteers", strings.NewReader(metricsBody))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"temporarily unavailable"}`, rec.Body.String())

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "campaign_briefing_pipeline_errors_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &stubBriefer{}, nil)

	rec := do(t, s, http.MethodGet, "/deep-dive/donors", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubBriefer{}, nil)

	do(t, s, http.MethodGet, "/health", nil)
	rec := do(t, s, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `campaign_briefing_http_requests_total{method="GET",route="GET /health",status="200"} 1`)
	assert.Contains(t, body, "campaign_briefing_http_request_duration_seconds")
}

func TestRequestIDMiddleware(t *testing.T) {
	s, _ := newTestServer(t, &stubBriefer{}, nil)

	rec := do(t, s, http.MethodGet, "/health", nil)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, id)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\n")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, "not a uuid\n", rec.Header().Get(RequestIDHeader))
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	s, _ := newTestServer(t, &stubBriefer{}, nil)

	rec := do(t, s, http.MethodOptions, "/deep-dive/donors", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimit(t *testing.T) {
	rl := &ratelimit.Config{
		Enabled: true,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/deep-dive/", Method: http.MethodPost, Limit: 2, Window: time.Hour, Burst: 2},
		},
	}
	briefer := &stubBriefer{}
	s, _ := newTestServer(t, briefer, rl)

	for i := 0; i < 2; i++ {
		rec := do(t, s, http.MethodPost, "/deep-dive/donors", strings.NewReader(metricsBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(t, s, http.MethodPost, "/deep-dive/donors", strings.NewReader(metricsBody))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	health := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, health.Code)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, r io.Reader) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestArticlesStream(t *testing.T) {
	briefer := &stubBriefer{events: []pipeline.ProgressEvent{
		{Step: pipeline.StepCollect, Category: pipeline.CategoryTopic, Message: "Collected 40 candidates", Content: errors.New("unencodable")},
		{Step: pipeline.StepRank, Category: pipeline.CategoryTopic, Message: "Shortlisted 18 articles"},
	}}
	s, _ := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodGet, "/issues/housing/articles/stream", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readEvents(t, rec.Body)
	require.Len(t, events, 3)
	assert.Equal(t, "progress", events[0].name)
	assert.JSONEq(t, `{"step":"collect_feeds","category":"topic","message":"Collected 40 candidates"}`, events[0].data)
	assert.Equal(t, "complete", events[2].name)

	var result types.ArticleSearchResult
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &result))
	assert.Equal(t, "housing", result.Issue)

	// The streamed result feeds the plain endpoint's cache.
	cached := do(t, s, http.MethodGet, "/issues/housing/articles", nil)
	assert.Equal(t, "HIT", cached.Header().Get(cacheHeader))
	assert.Equal(t, 1, briefer.topicCalls)
}

func TestArticlesStream_Error(t *testing.T) {
	briefer := &stubBriefer{topicErr: &feeds.NoCandidatesError{Sources: 3, Failed: 3}}
	s, _ := newTestServer(t, briefer, nil)

	rec := do(t, s, http.MethodGet, "/issues/housing/articles/stream", nil)

	events := readEvents(t, rec.Body)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].name)
	assert.JSONEq(t, `{"error":"temporarily unavailable"}`, events[0].data)
}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("progress", map[string]string{"step": "rank_articles"}))
	require.NoError(t, sse.WriteProgress(pipeline.ProgressEvent{Step: "collect_feeds", Category: "topic", Message: "m", Content: 42}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"id: 1\nevent: progress\ndata: {\"step\":\"rank_articles\"}\n\n"+
			"id: 2\nevent: progress\ndata: {\"step\":\"collect_feeds\",\"category\":\"topic\",\"message\":\"m\"}\n\n",
		rec.Body.String())
}
