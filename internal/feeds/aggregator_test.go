package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/campaign-briefing/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rssWithLinks(links ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss><channel>`)
	for i, link := range links {
		fmt.Fprintf(&sb, "<item><title>Story %d</title><link>%s</link><description>About story %d</description></item>", i+1, link, i+1)
	}
	sb.WriteString(`</channel></rss>`)
	return sb.String()
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollect_FailingSourceIsIsolated(t *testing.T) {
	good := feedServer(t, rssWithLinks("https://a.example.com/1", "https://a.example.com/2"))
	broken := statusServer(t, http.StatusInternalServerError)
	other := feedServer(t, rssWithLinks("https://c.example.com/1"))

	agg := NewAggregator(Options{
		Sources: []Source{
			{Name: "A", URL: good.URL},
			{Name: "B", URL: broken.URL},
			{Name: "C", URL: other.URL},
		},
		Logger: quietLogger(),
	})

	articles, report, err := agg.CollectWithReport(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 3)
	assert.Equal(t, 1, report.Failed())

	var sourceErr *SourceError
	require.True(t, errors.As(report.Sources[1].Err, &sourceErr))
	assert.Contains(t, sourceErr.Error(), "500")
}

func TestCollect_TimeoutAndDuplicateScenario(t *testing.T) {
	a := feedServer(t, rssWithLinks("https://news.example.com/x", "https://news.example.com/y", "https://news.example.com/z"))
	b := hangingServer(t)
	c := feedServer(t, rssWithLinks("https://news.example.com/y#section-2"))

	agg := NewAggregator(Options{
		Sources: []Source{
			{Name: "A", URL: a.URL},
			{Name: "B", URL: b.URL},
			{Name: "C", URL: c.URL},
		},
		Timeout: 200 * time.Millisecond,
		Logger:  quietLogger(),
	})

	articles, report, err := agg.CollectWithReport(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, 1, report.Duplicates)
	assert.Error(t, report.Sources[1].Err)

	for _, article := range articles {
		assert.Equal(t, "A", article.Source)
	}
}

func TestCollect_DuplicateKeepsFirstSourceInRegistryOrder(t *testing.T) {
	slowFirst := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = io.WriteString(w, rssWithLinks("https://news.example.com/shared#top"))
	}))
	t.Cleanup(slowFirst.Close)
	fastSecond := feedServer(t, rssWithLinks("https://news.example.com/shared", "https://news.example.com/only-second"))

	agg := NewAggregator(Options{
		Sources: []Source{
			{Name: "First", URL: slowFirst.URL},
			{Name: "Second", URL: fastSecond.URL},
		},
		Logger: quietLogger(),
	})

	articles, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "https://news.example.com/shared", articles[0].ID)
	assert.Equal(t, "First", articles[0].Source)
	assert.Equal(t, slowFirst.URL, articles[0].FeedURL)
	assert.Equal(t, "Second", articles[1].Source)
}

func TestCollect_AllFail(t *testing.T) {
	broken := statusServer(t, http.StatusBadGateway)
	empty := feedServer(t, "<rss><channel></channel></rss>")

	agg := NewAggregator(Options{
		Sources: []Source{{Name: "B", URL: broken.URL}, {Name: "E", URL: empty.URL}},
		Logger:  quietLogger(),
	})

	articles, err := agg.Collect(context.Background())
	assert.Nil(t, articles)

	var noCandidates *NoCandidatesError
	require.True(t, errors.As(err, &noCandidates))
	assert.Equal(t, 2, noCandidates.Sources)
	assert.Equal(t, 1, noCandidates.Failed)
}

func TestCollect_SendsFeedHeaders(t *testing.T) {
	var accept, userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		userAgent = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, rssWithLinks("https://a.example.com/1"))
	}))
	t.Cleanup(server.Close)

	agg := NewAggregator(Options{Sources: []Source{{Name: "A", URL: server.URL}}, Logger: quietLogger()})
	_, err := agg.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AcceptHeader, accept)
	assert.Equal(t, fetch.DefaultUserAgent, userAgent)
}

func TestCollect_LogsFailures(t *testing.T) {
	broken := statusServer(t, http.StatusNotFound)
	good := feedServer(t, rssWithLinks("https://a.example.com/1"))

	var buf bytes.Buffer
	agg := NewAggregator(Options{
		Sources: []Source{{Name: "Broken", URL: broken.URL}, {Name: "Good", URL: good.URL}},
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})

	_, err := agg.Collect(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "feed failed")
	assert.Contains(t, buf.String(), "feed=Broken")
}

type stubFetcher struct {
	bodies map[string]string
}

func (s *stubFetcher) Get(_ context.Context, url string) (*fetch.Result, error) {
	body, ok := s.bodies[url]
	if !ok {
		return nil, &fetch.Error{URL: url, Message: "unreachable"}
	}
	return &fetch.Result{URL: url, Body: body, StatusCode: http.StatusOK}, nil
}

func TestCollect_InjectedFetcher(t *testing.T) {
	agg := NewAggregator(Options{
		Sources: []Source{
			{Name: "One", URL: "https://one.example.com/rss"},
			{Name: "Two", URL: "https://two.example.com/rss"},
		},
		Fetcher: &stubFetcher{bodies: map[string]string{
			"https://two.example.com/rss": rssWithLinks("https://two.example.com/a"),
		}},
		Logger: quietLogger(),
	})

	articles, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Two", articles[0].Source)
	assert.Len(t, agg.Sources(), 2)
}
