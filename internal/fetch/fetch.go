// Package fetch provides rate-limited HTTP GETs for feed and page retrieval.
// This package centralizes the HTTP fetching logic used by feed aggregation.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent identifies the bot to feed publishers.
const DefaultUserAgent = "CandidateNewsBot/1.0 (+https://candidate.app)"

// DefaultMaxBytes caps how much of a response body is read.
const DefaultMaxBytes = 5 << 20

// Result holds the decoded body and response metadata of a fetch.
type Result struct {
	URL         string
	Body        string
	ContentType string
	StatusCode  int
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	MaxBytes  int64

	// RequestsPerSecond and Burst bound traffic per host; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBytes:          DefaultMaxBytes,
		RequestsPerSecond: 5,
		Burst:             8,
	}
}

// Fetcher issues GET requests with shared client, headers and per-host limits.
type Fetcher struct {
	client  *http.Client
	limiter *Limiter
	opts    Options
}

// NewFetcher creates a Fetcher. A nil opts uses DefaultOptions.
func NewFetcher(opts *Options) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}

	var limiter *Limiter
	if o.RequestsPerSecond > 0 {
		limiter = NewLimiter(o.RequestsPerSecond, o.Burst)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: o.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		limiter: limiter,
		opts:    o,
	}
}

// Get retrieves urlStr. Non-2xx responses return both the Result and an *Error.
func (f *Fetcher) Get(ctx context.Context, urlStr string) (*Result, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, parsedURL.Host); err != nil {
			return nil, &Error{
				URL:     urlStr,
				Message: "rate limiter wait aborted",
				Cause:   err,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)
	for key, value := range f.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	result := &Result{
		URL:         urlStr,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := readBody(resp.Body, contentType, f.opts.MaxBytes)
	if err != nil {
		return result, &Error{
			URL:        urlStr,
			Message:    "failed to read response body",
			Cause:      err,
			StatusCode: resp.StatusCode,
		}
	}
	result.Body = body

	return result, nil
}

// readBody reads at most maxBytes and transcodes to UTF-8 when the response
// declares another charset, either in Content-Type or in the XML declaration.
func readBody(r io.Reader, contentType string, maxBytes int64) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes))
	if err != nil {
		return "", err
	}

	label := declaredCharset(contentType, raw)
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return string(raw), nil
	}

	decoded, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		// Unknown charset: keep the raw bytes.
		return string(raw), nil
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return string(raw), nil
	}
	return string(data), nil
}

var xmlEncodingPattern = regexp.MustCompile(`(?i)<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._-]+)["']`)

func declaredCharset(contentType string, body []byte) string {
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			if cs := params["charset"]; cs != "" {
				return cs
			}
		}
	}

	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	if m := xmlEncodingPattern.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}
