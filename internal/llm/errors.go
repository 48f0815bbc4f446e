package llm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// UpstreamGatewayError is returned when the provider answers with an HTML page
// instead of an API payload, typically an auth or access gate. Retrying does
// not help; the key or model access needs fixing.
type UpstreamGatewayError struct {
	Provider   Provider
	StatusCode int
	PageTitle  string
}

func (e *UpstreamGatewayError) Error() string {
	name := "upstream"
	switch e.Provider {
	case ProviderOpenRouter:
		name = "OpenRouter"
	case ProviderGemini:
		name = "Gemini"
	}

	msg := fmt.Sprintf("%s returned an HTML response", name)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.PageTitle != "" {
		msg += fmt.Sprintf(" titled %q", e.PageTitle)
	}
	switch e.Provider {
	case ProviderGemini:
		return msg + ". Confirm GEMINI_API_KEY and requested model access."
	default:
		return msg + ". Confirm OPENROUTER_API_KEY and requested model access."
	}
}

// NewUpstreamGatewayError builds the error from the HTML page, pulling its title when present.
func NewUpstreamGatewayError(provider Provider, statusCode int, page []byte) *UpstreamGatewayError {
	return &UpstreamGatewayError{
		Provider:   provider,
		StatusCode: statusCode,
		PageTitle:  pageTitle(page),
	}
}

// LooksLikeHTML reports whether a response is an HTML document rather than an API payload.
func LooksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.TrimSpace(body)
	if len(head) > 64 {
		head = head[:64]
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

func pageTitle(page []byte) string {
	if len(page) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if len(title) > 120 {
		title = title[:120]
	}
	return title
}
