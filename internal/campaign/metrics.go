// Package campaign computes summary figures and monthly rollups from
// campaign metrics tables.
package campaign

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/campaign-briefing/internal/types"
)

// Summary holds headline campaign totals
type Summary struct {
	TotalRaisedUSD float64 `json:"totalRaisedUSD"`
	Donors         int     `json:"donors"`
	AvgDonationUSD float64 `json:"avgDonationUSD"`
	Volunteers     int     `json:"volunteers"`
	Events         int     `json:"events"`
}

// MonthAmount is a monthly dollar total
type MonthAmount struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// MonthCount is a monthly count
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthAttendance is total event attendance for a month
type MonthAttendance struct {
	Month     string `json:"month"`
	Attendees int    `json:"attendees"`
}

// NamedAmount is a labeled dollar total, e.g. donations for "Austin, TX"
type NamedAmount struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// BuildSummary computes totals. Every donation counts as one donor and the
// average is rounded to whole dollars.
func BuildSummary(m types.ExpandedMetrics) Summary {
	s := Summary{
		Donors: len(m.Donations),
		Events: len(m.Events),
	}
	for _, d := range m.Donations {
		s.TotalRaisedUSD += d.AmountUSD
	}
	if s.Donors > 0 {
		s.AvgDonationUSD = math.Round(s.TotalRaisedUSD / float64(s.Donors))
	}
	for _, v := range m.VolunteerCountsByMonth {
		s.Volunteers += v.Count
	}
	return s
}

// Text renders the summary as a single prompt line.
func (s Summary) Text() string {
	return fmt.Sprintf("totalRaisedUSD=%s, donors=%d, avgDonationUSD=%s, volunteers=%d, events=%d",
		formatNumber(s.TotalRaisedUSD), s.Donors, formatNumber(s.AvgDonationUSD), s.Volunteers, s.Events)
}

// DonationsByMonth sums donation amounts per month, oldest first.
func DonationsByMonth(m types.ExpandedMetrics) []MonthAmount {
	totals := make(map[string]float64)
	for _, d := range m.Donations {
		totals[monthKey(d.Date)] += d.AmountUSD
	}
	out := make([]MonthAmount, 0, len(totals))
	for _, month := range sortedKeys(totals) {
		out = append(out, MonthAmount{Month: month, Total: totals[month]})
	}
	return out
}

// DonationsByCity sums donation amounts per "city, state" in first-seen order.
func DonationsByCity(m types.ExpandedMetrics) []NamedAmount {
	index := make(map[string]int)
	var out []NamedAmount
	for _, d := range m.Donations {
		label := d.City + ", " + d.State
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, NamedAmount{Name: label})
		}
		out[i].Value += d.AmountUSD
	}
	return out
}

// EventAttendanceByMonth sums attendees per month, oldest first.
func EventAttendanceByMonth(m types.ExpandedMetrics) []MonthAttendance {
	totals := make(map[string]int)
	for _, e := range m.Events {
		totals[monthKey(e.Date)] += e.Attendees
	}
	out := make([]MonthAttendance, 0, len(totals))
	for _, month := range sortedKeys(totals) {
		out = append(out, MonthAttendance{Month: month, Attendees: totals[month]})
	}
	return out
}

// DonorsByMonth counts distinct donor names per month, oldest first.
func DonorsByMonth(m types.ExpandedMetrics) []MonthCount {
	donors := make(map[string]map[string]struct{})
	for _, d := range m.Donations {
		key := monthKey(d.Date)
		if donors[key] == nil {
			donors[key] = make(map[string]struct{})
		}
		donors[key][d.Name] = struct{}{}
	}
	out := make([]MonthCount, 0, len(donors))
	for _, month := range sortedKeys(donors) {
		out = append(out, MonthCount{Month: month, Count: len(donors[month])})
	}
	return out
}

// EventsHeldByMonth counts events per month, oldest first.
func EventsHeldByMonth(m types.ExpandedMetrics) []MonthCount {
	counts := make(map[string]int)
	for _, e := range m.Events {
		counts[monthKey(e.Date)]++
	}
	out := make([]MonthCount, 0, len(counts))
	for _, month := range sortedKeys(counts) {
		out = append(out, MonthCount{Month: month, Count: counts[month]})
	}
	return out
}

// VolunteerCountsByMonth returns a copy of the volunteer table sorted by month.
func VolunteerCountsByMonth(m types.ExpandedMetrics) []types.VolunteerByMonth {
	out := make([]types.VolunteerByMonth, len(m.VolunteerCountsByMonth))
	copy(out, m.VolunteerCountsByMonth)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Rollups renders every monthly and per-city aggregate as "label: key=value; ..."
// lines. Tables with no rows are omitted.
func Rollups(m types.ExpandedMetrics) string {
	var lines []string
	add := func(label string, pairs []string) {
		if len(pairs) > 0 {
			lines = append(lines, label+": "+strings.Join(pairs, "; "))
		}
	}

	var pairs []string
	for _, r := range DonationsByMonth(m) {
		pairs = append(pairs, r.Month+"="+formatNumber(r.Total))
	}
	add("donationsByMonth", pairs)

	pairs = nil
	for _, r := range DonorsByMonth(m) {
		pairs = append(pairs, r.Month+"="+strconv.Itoa(r.Count))
	}
	add("donorsByMonth", pairs)

	pairs = nil
	for _, r := range DonationsByCity(m) {
		pairs = append(pairs, r.Name+"="+formatNumber(r.Value))
	}
	add("donationsByCity", pairs)

	pairs = nil
	for _, r := range VolunteerCountsByMonth(m) {
		pairs = append(pairs, r.Month+"="+strconv.Itoa(r.Count))
	}
	add("volunteersByMonth", pairs)

	pairs = nil
	for _, r := range EventsHeldByMonth(m) {
		pairs = append(pairs, r.Month+"="+strconv.Itoa(r.Count))
	}
	add("eventsByMonth", pairs)

	pairs = nil
	for _, r := range EventAttendanceByMonth(m) {
		pairs = append(pairs, r.Month+"="+strconv.Itoa(r.Attendees))
	}
	add("attendanceByMonth", pairs)

	return strings.Join(lines, "\n")
}

// monthKey returns the YYYY-MM prefix of an ISO date.
func monthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
