//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
)

// Category is one of the four fixed deep-dive focus areas
type Category string

// Category values
const (
	CategoryFundsRaised Category = "fundsRaised"
	CategoryDonors      Category = "donors"
	CategoryVolunteers  Category = "volunteers"
	CategoryEvents      Category = "events"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryFundsRaised, CategoryDonors, CategoryVolunteers, CategoryEvents}

// ParseCategory converts a raw selector into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q (expected one of fundsRaised, donors, volunteers, events)", s)
}

// InsightBlock is the narrative for a single category
type InsightBlock struct {
	Headline string   `json:"headline" validate:"required,min=3,max=140"`
	Summary  string   `json:"summary" validate:"required,min=10,max=600"`
	Bullets  []string `json:"bullets" validate:"min=3,max=8,dive,min=3"`
	Caveats  []string `json:"caveats" validate:"omitempty,max=12,dive,min=3"`
}

// DeepDiveResult is the structured output of the metrics path
type DeepDiveResult struct {
	Insights map[Category]InsightBlock `json:"insights"`
	Chart    ChartSpec                 `json:"chart"`
}

// UnmarshalJSON decodes the chart through DecodeChart so the variant is
// chosen from the fields actually present.
func (d *DeepDiveResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Insights map[Category]InsightBlock `json:"insights"`
		Chart    json.RawMessage           `json:"chart"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	chart, err := DecodeChart(raw.Chart)
	if err != nil {
		return err
	}
	d.Insights = raw.Insights
	d.Chart = chart
	return nil
}
