package campaign

import (
	"testing"

	"github.com/jonathan/campaign-briefing/internal/types"
	"github.com/stretchr/testify/assert"
)

func fixture() types.ExpandedMetrics {
	return types.ExpandedMetrics{
		Donations: []types.Donation{
			{Name: "Ana", City: "Austin", State: "TX", AmountUSD: 100, Date: "2024-04-02"},
			{Name: "Ben", City: "Dallas", State: "TX", AmountUSD: 50, Date: "2024-03-15"},
			{Name: "Ana", City: "Austin", State: "TX", AmountUSD: 25, Date: "2024-04-20"},
		},
		VolunteerCountsByMonth: []types.VolunteerByMonth{
			{Month: "2024-04", Count: 9},
			{Month: "2024-03", Count: 4},
		},
		Events: []types.CampaignEvent{
			{Date: "2024-04-10", Type: "Rally", Attendees: 200},
			{Date: "2024-03-01", Type: "Town hall", Attendees: 80},
			{Date: "2024-04-28", Type: "Canvass", Attendees: 40},
		},
	}
}

func TestBuildSummary(t *testing.T) {
	s := BuildSummary(fixture())

	assert.Equal(t, 175.0, s.TotalRaisedUSD)
	assert.Equal(t, 3, s.Donors)
	assert.Equal(t, 58.0, s.AvgDonationUSD)
	assert.Equal(t, 13, s.Volunteers)
	assert.Equal(t, 3, s.Events)
	assert.Equal(t, "totalRaisedUSD=175, donors=3, avgDonationUSD=58, volunteers=13, events=3", s.Text())
}

func TestBuildSummary_Empty(t *testing.T) {
	s := BuildSummary(types.ExpandedMetrics{})
	assert.Equal(t, Summary{}, s)
}

func TestDonationsByMonth(t *testing.T) {
	assert.Equal(t, []MonthAmount{
		{Month: "2024-03", Total: 50},
		{Month: "2024-04", Total: 125},
	}, DonationsByMonth(fixture()))
}

func TestDonationsByCity_FirstSeenOrder(t *testing.T) {
	assert.Equal(t, []NamedAmount{
		{Name: "Austin, TX", Value: 125},
		{Name: "Dallas, TX", Value: 50},
	}, DonationsByCity(fixture()))
}

func TestEventAttendanceByMonth(t *testing.T) {
	assert.Equal(t, []MonthAttendance{
		{Month: "2024-03", Attendees: 80},
		{Month: "2024-04", Attendees: 240},
	}, EventAttendanceByMonth(fixture()))
}

func TestDonorsByMonth_CountsDistinctNames(t *testing.T) {
	assert.Equal(t, []MonthCount{
		{Month: "2024-03", Count: 1},
		{Month: "2024-04", Count: 1},
	}, DonorsByMonth(fixture()))
}

func TestEventsHeldByMonth(t *testing.T) {
	assert.Equal(t, []MonthCount{
		{Month: "2024-03", Count: 1},
		{Month: "2024-04", Count: 2},
	}, EventsHeldByMonth(fixture()))
}

func TestVolunteerCountsByMonth_SortsCopy(t *testing.T) {
	m := fixture()
	sorted := VolunteerCountsByMonth(m)

	assert.Equal(t, "2024-03", sorted[0].Month)
	assert.Equal(t, "2024-04", sorted[1].Month)
	assert.Equal(t, "2024-04", m.VolunteerCountsByMonth[0].Month)
}

func TestRollups(t *testing.T) {
	want := "donationsByMonth: 2024-03=50; 2024-04=125\n" +
		"donorsByMonth: 2024-03=1; 2024-04=1\n" +
		"donationsByCity: Austin, TX=125; Dallas, TX=50\n" +
		"volunteersByMonth: 2024-03=4; 2024-04=9\n" +
		"eventsByMonth: 2024-03=1; 2024-04=2\n" +
		"attendanceByMonth: 2024-03=80; 2024-04=240"
	assert.Equal(t, want, Rollups(fixture()))
}

func TestRollups_OmitsEmptyTables(t *testing.T) {
	m := types.ExpandedMetrics{VolunteerCountsByMonth: []types.VolunteerByMonth{{Month: "2024-01", Count: 3}}}
	assert.Equal(t, "volunteersByMonth: 2024-01=3", Rollups(m))
	assert.Empty(t, Rollups(types.ExpandedMetrics{}))
}
