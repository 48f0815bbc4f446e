// Package digest renders ranked articles and campaign metrics as compact,
// deterministic text for model prompts. Identical input always yields
// byte-identical output.
package digest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/campaign-briefing/internal/types"
)

// Articles renders one numbered paragraph per article, separated by blank lines.
func Articles(articles []types.ScoredArticle) string {
	paragraphs := make([]string, 0, len(articles))
	for i, a := range articles {
		lines := make([]string, 0, 7)
		lines = append(lines,
			fmt.Sprintf("Article %d: %s", i+1, a.Title),
			"Source: "+a.Source,
		)
		if published := a.PublishedISO(); published != "" {
			lines = append(lines, "Published: "+published)
		} else {
			lines = append(lines, "Published: unknown")
		}
		lines = append(lines, "Link: "+a.Link)
		if a.ImageURL != "" {
			lines = append(lines, "ImageUrl: "+a.ImageURL)
		}
		lines = append(lines,
			"Summary: "+a.Summary,
			"Score: "+strconv.FormatFloat(a.Score, 'f', 2, 64),
		)
		paragraphs = append(paragraphs, strings.Join(lines, "\n"))
	}
	return strings.Join(paragraphs, "\n\n")
}

// Column headers of the three metrics tables.
var (
	DonationColumns  = []string{"name", "city", "state", "age", "amountUSD", "date"}
	VolunteerColumns = []string{"month", "count"}
	EventColumns     = []string{"date", "type", "city", "state", "attendees"}
)

// MetricsSections holds one CSV table per metrics dataset
type MetricsSections struct {
	Donations  string
	Volunteers string
	Events     string
}

// Text joins the three tables under labeled headings.
func (s MetricsSections) Text() string {
	return strings.Join([]string{
		"Donations CSV:", s.Donations,
		"",
		"Volunteer Counts CSV:", s.Volunteers,
		"",
		"Events CSV:", s.Events,
	}, "\n")
}

// Metrics renders the donation, volunteer and event tables as CSV. An empty
// table is just its header row.
func Metrics(m types.ExpandedMetrics) MetricsSections {
	donations := make([][]string, 0, len(m.Donations))
	for _, d := range m.Donations {
		donations = append(donations, []string{d.Name, d.City, d.State, strconv.Itoa(d.Age), formatNumber(d.AmountUSD), d.Date})
	}

	volunteers := make([][]string, 0, len(m.VolunteerCountsByMonth))
	for _, v := range m.VolunteerCountsByMonth {
		volunteers = append(volunteers, []string{v.Month, strconv.Itoa(v.Count)})
	}

	events := make([][]string, 0, len(m.Events))
	for _, e := range m.Events {
		events = append(events, []string{e.Date, e.Type, e.City, e.State, strconv.Itoa(e.Attendees)})
	}

	return MetricsSections{
		Donations:  Table(DonationColumns, donations),
		Volunteers: Table(VolunteerColumns, volunteers),
		Events:     Table(EventColumns, events),
	}
}

// Table renders a header row and data rows joined by "\n", with no trailing newline.
func Table(columns []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinRow(columns))
	for _, row := range rows {
		lines = append(lines, joinRow(row))
	}
	return strings.Join(lines, "\n")
}

func joinRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeField(f)
	}
	return strings.Join(escaped, ",")
}

// EscapeField quotes a value containing a comma, quote or newline, doubling
// embedded quotes. Other values are returned unchanged.
func EscapeField(value string) string {
	if !strings.ContainsAny(value, "\",\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
