//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChartKind is the discriminator shared by every chart variant
type ChartKind string

// Chart kinds
const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
	ChartArea ChartKind = "area"
	ChartPie  ChartKind = "pie"
)

// IsAxis reports whether the kind is drawn on category/value axes.
func (k ChartKind) IsAxis() bool {
	return k == ChartBar || k == ChartLine || k == ChartArea
}

// ChartSpec is a closed sum over AxisSingleChart, AxisMultiChart and PieChart.
// Consumers switch on the concrete type; no other implementations exist.
type ChartSpec interface {
	ChartKind() ChartKind
	Base() ChartBase
	isChartSpec()
}

// ChartBase holds the fields every chart variant carries
type ChartBase struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Narrative   string    `json:"narrative" validate:"required,min=20,max=600"`
	ForCategory *Category `json:"forCategory"`
}

// AxisSingleChart is a bar/line/area chart with one numeric series
type AxisSingleChart struct {
	ChartBase
	Kind       ChartKind `json:"kind" validate:"oneof=bar line area"`
	Categories []string  `json:"categories" validate:"required"`
	Values     []float64 `json:"values" validate:"required"`
	YAxisLabel *string   `json:"yAxisLabel"`
}

// SeriesData is one labeled series of an AxisMultiChart
type SeriesData struct {
	Label string    `json:"label" validate:"required"`
	Data  []float64 `json:"data"`
}

// AxisMultiChart is a bar/line/area chart comparing 2-5 labeled series
type AxisMultiChart struct {
	ChartBase
	Kind       ChartKind    `json:"kind" validate:"oneof=bar line area"`
	Categories []string     `json:"categories" validate:"required"`
	Series     []SeriesData `json:"series" validate:"min=2,max=5,dive"`
	YAxisLabel *string      `json:"yAxisLabel"`
}

// PieSlice is one named share of a PieChart
type PieSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PieChart shows proportions across named slices
type PieChart struct {
	ChartBase
	Kind       ChartKind  `json:"kind" validate:"eq=pie"`
	Slices     []PieSlice `json:"slices" validate:"required"`
	ValueLabel *string    `json:"valueLabel"`
}

func (c AxisSingleChart) ChartKind() ChartKind { return c.Kind }
func (c AxisSingleChart) Base() ChartBase      { return c.ChartBase }
func (AxisSingleChart) isChartSpec()           {}

func (c AxisMultiChart) ChartKind() ChartKind { return c.Kind }
func (c AxisMultiChart) Base() ChartBase      { return c.ChartBase }
func (AxisMultiChart) isChartSpec()           {}

func (c PieChart) ChartKind() ChartKind { return ChartPie }
func (c PieChart) Base() ChartBase      { return c.ChartBase }
func (PieChart) isChartSpec()           {}

// WithID returns a copy of the chart carrying the given id.
func WithID(chart ChartSpec, id string) ChartSpec {
	switch c := chart.(type) {
	case AxisSingleChart:
		c.ID = id
		return c
	case AxisMultiChart:
		c.ID = id
		return c
	case PieChart:
		c.ID = id
		return c
	default:
		panic(fmt.Sprintf("unknown chart variant %T", chart))
	}
}

// ChartShapeError reports a chart object that matches no variant
type ChartShapeError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ChartShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ChartShapeError) Unwrap() error {
	return e.Cause
}

// DecodeChart picks the chart variant from the raw object. The kind selects
// pie vs axis; for axis kinds the presence of values or series selects the
// variant, and carrying both is rejected. Pie charts must carry slices and
// axis charts must carry categories, even when empty.
func DecodeChart(data []byte) (ChartSpec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &ChartShapeError{Field: "chart", Message: "chart is required"}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &ChartShapeError{Field: "chart", Message: "chart must be an object", Cause: err}
	}

	var kind ChartKind
	if raw, ok := probe["kind"]; ok {
		if err := json.Unmarshal(raw, &kind); err != nil {
			return nil, &ChartShapeError{Field: "chart.kind", Message: "kind must be a string", Cause: err}
		}
	}

	hasValues := present(probe, "values")
	hasSeries := present(probe, "series")

	switch {
	case kind == ChartPie:
		if hasValues || hasSeries {
			return nil, &ChartShapeError{Field: "chart", Message: "pie chart must use slices, not values or series"}
		}
		if !present(probe, "slices") {
			return nil, &ChartShapeError{Field: "chart.slices", Message: "pie chart requires slices"}
		}
		var c PieChart
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, &ChartShapeError{Field: "chart", Message: "invalid pie chart", Cause: err}
		}
		return c, nil

	case kind.IsAxis():
		switch {
		case hasValues && hasSeries:
			return nil, &ChartShapeError{Field: "chart.values/chart.series", Message: "chart must use either values or series, never both"}
		case (hasValues || hasSeries) && !present(probe, "categories"):
			return nil, &ChartShapeError{Field: "chart.categories", Message: "axis chart requires categories"}
		case hasSeries:
			var c AxisMultiChart
			if err := json.Unmarshal(trimmed, &c); err != nil {
				return nil, &ChartShapeError{Field: "chart", Message: "invalid multi-series chart", Cause: err}
			}
			return c, nil
		case hasValues:
			var c AxisSingleChart
			if err := json.Unmarshal(trimmed, &c); err != nil {
				return nil, &ChartShapeError{Field: "chart", Message: "invalid single-series chart", Cause: err}
			}
			return c, nil
		default:
			return nil, &ChartShapeError{Field: "chart", Message: "axis chart requires values or series"}
		}

	default:
		return nil, &ChartShapeError{Field: "chart.kind", Message: fmt.Sprintf("unsupported chart kind %q", kind)}
	}
}

func present(obj map[string]json.RawMessage, key string) bool {
	raw, ok := obj[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
