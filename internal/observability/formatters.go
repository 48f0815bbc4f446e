// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/campaign-briefing/internal/campaign"
	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintFeedReport outputs per-feed item counts and failures for a collection run.
func (p *Printer) PrintFeedReport(report feeds.Report) {
	if len(report.Sources) == 0 {
		return
	}

	var sb strings.Builder
	total := 0
	for _, s := range report.Sources {
		if s.Err != nil {
			sb.WriteString(fmt.Sprintf("✗ %s: %s\n", s.Source.Name, s.Err))
			continue
		}
		total += s.Items
		sb.WriteString(fmt.Sprintf("✓ %-28s %4d items\n", truncate(s.Source.Name, 28), s.Items))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Feeds: %d ok, %d failed\n", len(report.Sources)-report.Failed(), report.Failed()))
	sb.WriteString(fmt.Sprintf("Items: %d (%d duplicates dropped)", total, report.Duplicates))

	p.printBox("FEED COLLECTION", sb.String())
}

// PrintShortlist outputs the top ranked candidates with their scores.
func (p *Printer) PrintShortlist(shortlist []types.ScoredArticle) {
	if len(shortlist) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Shortlisted: %d\n\n", len(shortlist)))

	count := min(len(shortlist), maxItemsToShow)
	for i := 0; i < count; i++ {
		a := shortlist[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, a.Title))
		sb.WriteString(fmt.Sprintf("    Score: %.2f  Source: %s\n", a.Score, a.Source))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(shortlist) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more articles", len(shortlist)-maxItemsToShow))
	}

	p.printBox("RANKED SHORTLIST", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArticleResult outputs the model's summary and chosen articles.
func (p *Printer) PrintArticleResult(result *types.ArticleSearchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Issue:  %s\n\n", result.Issue))
	sb.WriteString(wrap(result.Summary, boxWidth-4))
	sb.WriteString("\n\n")

	for i, a := range result.Articles {
		sb.WriteString(fmt.Sprintf("• %s\n", a.Title))
		sb.WriteString(fmt.Sprintf("  %s\n", a.Source))
		sb.WriteString(fmt.Sprintf("  %s\n", a.Link))
		if i < len(result.Articles)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SELECTED ARTICLES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCampaignSummary outputs the headline totals for a metrics payload.
func (p *Printer) PrintCampaignSummary(summary campaign.Summary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total raised:   $%.2f\n", summary.TotalRaisedUSD))
	sb.WriteString(fmt.Sprintf("Donors:         %d\n", summary.Donors))
	sb.WriteString(fmt.Sprintf("Avg donation:   $%.0f\n", summary.AvgDonationUSD))
	sb.WriteString(fmt.Sprintf("Volunteers:     %d\n", summary.Volunteers))
	sb.WriteString(fmt.Sprintf("Events:         %d", summary.Events))

	p.printBox("CAMPAIGN TOTALS", sb.String())
}

// PrintDeepDive outputs the insight block for category and a chart outline.
func (p *Printer) PrintDeepDive(result *types.DeepDiveResult, category types.Category) {
	if result == nil {
		return
	}

	var sb strings.Builder
	if block, ok := result.Insights[category]; ok {
		sb.WriteString(block.Headline + "\n\n")
		sb.WriteString(wrap(block.Summary, boxWidth-4))
		sb.WriteString("\n\n")
		for _, b := range block.Bullets {
			sb.WriteString(fmt.Sprintf("• %s\n", b))
		}
		if len(block.Caveats) > 0 {
			sb.WriteString("\nCaveats:\n")
			for _, c := range block.Caveats {
				sb.WriteString(fmt.Sprintf("  ! %s\n", c))
			}
		}
		sb.WriteString("\n")
	}

	if result.Chart != nil {
		base := result.Chart.Base()
		sb.WriteString(fmt.Sprintf("Chart:  %s (%s)\n", base.Title, result.Chart.ChartKind()))
		sb.WriteString(fmt.Sprintf("ID:     %s\n", base.ID))
		switch c := result.Chart.(type) {
		case types.AxisSingleChart:
			sb.WriteString(fmt.Sprintf("Points: %d\n", len(c.Values)))
		case types.AxisMultiChart:
			labels := make([]string, 0, len(c.Series))
			for _, s := range c.Series {
				labels = append(labels, s.Label)
			}
			sb.WriteString(fmt.Sprintf("Series: %s\n", strings.Join(labels, ", ")))
		case types.PieChart:
			sb.WriteString(fmt.Sprintf("Slices: %d\n", len(c.Slices)))
		}
	}

	p.printBox("DEEP DIVE: "+strings.ToUpper(string(category)), strings.TrimSuffix(sb.String(), "\n"))
}

// wrap breaks text on spaces so no line exceeds width runes where possible.
func wrap(text string, width int) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
