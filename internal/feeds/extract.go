package feeds

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/campaign-briefing/internal/types"
	"github.com/microcosm-cc/bluemonday"
)

// MaxSummaryLength bounds the summary text kept per article, in characters.
const MaxSummaryLength = 420

var (
	itemPattern  = regexp.MustCompile(`(?i)<item\b[\s\S]*?</item>`)
	entryPattern = regexp.MustCompile(`(?i)<entry\b[\s\S]*?</entry>`)

	linkTagPattern  = regexp.MustCompile(`(?i)<link\b([^>]*)>`)
	hrefAttrPattern = regexp.MustCompile(`(?i)\bhref\s*=\s*["']([^"']+)["']`)
	relAttrPattern  = regexp.MustCompile(`(?i)\brel\s*=\s*["']([^"']+)["']`)

	imagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<media:content\b[^>]*\burl\s*=\s*["']([^"']+)["'][^>]*>`),
		regexp.MustCompile(`(?i)<media:thumbnail\b[^>]*\burl\s*=\s*["']([^"']+)["'][^>]*>`),
		regexp.MustCompile(`(?i)<enclosure\b[^>]*\burl\s*=\s*["']([^"']+)["'][^>]*>`),
	}

	tagBoundary   = regexp.MustCompile(`<[^>]*>`)
	cdataMarkers  = strings.NewReplacer("<![CDATA[", "", "]]>", "")
	stripPolicy   = bluemonday.StrictPolicy()
	tagPatterns   = map[string]*regexp.Regexp{}
	dateLayouts   = []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339Nano,
		time.RFC3339,
		time.RFC822Z,
		time.RFC822,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"Mon, 2 Jan 2006 15:04 -0700",
		"Mon, 02 Jan 2006 15:04 -0700",
		"Mon, 2 Jan 2006 15:04 MST",
		"Mon, 02 Jan 2006 15:04 MST",
		"2 Jan 2006 15:04:05 -0700",
		"02 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

func init() {
	for _, tag := range []string{
		"title", "link", "guid", "id",
		"description", "content:encoded", "summary", "content",
		"pubDate", "dc:date", "updated", "published",
	} {
		tagPatterns[tag] = regexp.MustCompile(`(?i)<` + regexp.QuoteMeta(tag) + `\b[^>]*>([\s\S]*?)</` + regexp.QuoteMeta(tag) + `>`)
	}
}

// ParseFeed extracts candidate articles from a raw RSS or Atom document.
// Matching is pattern based: blocks that lack a usable title or link are
// skipped and malformed markup never fails the whole feed.
func ParseFeed(source Source, body string) []types.CandidateArticle {
	blocks := itemPattern.FindAllString(body, -1)
	if len(blocks) == 0 {
		blocks = entryPattern.FindAllString(body, -1)
	}

	articles := make([]types.CandidateArticle, 0, len(blocks))
	for _, block := range blocks {
		article, ok := parseBlock(source, block)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}
	return articles
}

func parseBlock(source Source, block string) (types.CandidateArticle, bool) {
	title := CleanText(firstTag(block, "title"))
	if title == "" {
		return types.CandidateArticle{}, false
	}

	link := NormalizeLink(firstTag(block, "link"))
	if link == "" {
		link = NormalizeLink(atomLink(block))
	}
	if link == "" {
		link = NormalizeLink(firstTag(block, "guid"))
	}
	if link == "" {
		link = NormalizeLink(firstTag(block, "id"))
	}
	if link == "" {
		return types.CandidateArticle{}, false
	}

	summary := firstTag(block, "description", "content:encoded", "summary", "content")

	return types.CandidateArticle{
		ID:          link,
		Title:       title,
		Link:        link,
		Summary:     Truncate(CleanText(summary), MaxSummaryLength),
		PublishedAt: NormalizeDate(firstTag(block, "pubDate", "dc:date", "updated", "published")),
		Source:      source.Name,
		FeedURL:     source.URL,
		ImageURL:    imageURL(block),
	}, true
}

// firstTag returns the inner text of the first listed tag that is present and non-empty.
func firstTag(block string, tags ...string) string {
	for _, tag := range tags {
		pattern, ok := tagPatterns[tag]
		if !ok {
			continue
		}
		if m := pattern.FindStringSubmatch(block); m != nil && strings.TrimSpace(m[1]) != "" {
			return m[1]
		}
	}
	return ""
}

// atomLink returns the href of the first alternate (or untyped) <link/>.
func atomLink(block string) string {
	for _, m := range linkTagPattern.FindAllStringSubmatch(block, -1) {
		attrs := m[1]
		href := hrefAttrPattern.FindStringSubmatch(attrs)
		if href == nil {
			continue
		}
		rel := relAttrPattern.FindStringSubmatch(attrs)
		if rel == nil || strings.EqualFold(rel[1], "alternate") {
			return href[1]
		}
	}
	return ""
}

func imageURL(block string) string {
	for _, pattern := range imagePatterns {
		m := pattern.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		if link := NormalizeLink(m[1]); link != "" {
			return link
		}
	}
	return ""
}

// CleanText turns a feed text field into plain text: CDATA markers and tags
// are removed, entities are decoded and whitespace is collapsed.
func CleanText(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}

	out := cdataMarkers.Replace(strings.TrimSpace(value))
	// Escaped markup (&lt;p&gt;) is common in descriptions; decode it so the
	// policy below sees real tags.
	out = html.UnescapeString(out)
	out = tagBoundary.ReplaceAllStringFunc(out, func(tag string) string {
		return " " + tag + " "
	})
	out = stripPolicy.Sanitize(out)
	out = html.UnescapeString(out)
	return strings.Join(strings.Fields(out), " ")
}

// Truncate shortens value to maxLength characters, ending with "..." when cut.
func Truncate(value string, maxLength int) string {
	if utf8.RuneCountInString(value) <= maxLength {
		return value
	}
	if maxLength <= 3 {
		return string([]rune(value)[:maxLength])
	}
	return string([]rune(value)[:maxLength-3]) + "..."
}

// NormalizeLink canonicalizes an article link: entities and CDATA are
// decoded, only absolute http(s) URLs are accepted and the fragment is dropped.
// It returns "" for unusable links.
func NormalizeLink(raw string) string {
	cleaned := strings.TrimSpace(html.UnescapeString(cdataMarkers.Replace(raw)))
	if cleaned == "" {
		return ""
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// NormalizeDate parses the common feed date formats and returns the instant in
// UTC, or nil when the value is missing or unparseable.
func NormalizeDate(raw string) *time.Time {
	value := strings.TrimSpace(cdataMarkers.Replace(raw))
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
