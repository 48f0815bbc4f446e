//nolint:revive // types is a standard Go package name pattern
package types

// Donation is a single contribution record
type Donation struct {
	Name      string  `json:"name"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Age       int     `json:"age"`
	AmountUSD float64 `json:"amountUSD"`
	Date      string  `json:"date"`
}

// VolunteerByMonth is the volunteer headcount for one month (YYYY-MM)
type VolunteerByMonth struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// CampaignEvent is a single campaign event with attendance
type CampaignEvent struct {
	Date      string `json:"date"`
	Type      string `json:"type"`
	City      string `json:"city"`
	State     string `json:"state"`
	Attendees int    `json:"attendees"`
}

// ExpandedMetrics holds the raw campaign tables fed to the metrics path
type ExpandedMetrics struct {
	Donations              []Donation         `json:"donations"`
	VolunteerCountsByMonth []VolunteerByMonth `json:"volunteerCountsByMonth"`
	Events                 []CampaignEvent    `json:"events"`
}
