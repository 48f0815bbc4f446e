package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/campaign-briefing/internal/types"
	schemafiles "github.com/jonathan/campaign-briefing/schemas"
)

// ValidateArticleSearch decodes raw model output into an ArticleSearchResult,
// checking it against the article_search schema and the struct rules.
func ValidateArticleSearch(raw string) (*types.ArticleSearchResult, error) {
	if err := ensureJSONObject(raw); err != nil {
		return nil, err
	}
	if err := ValidateEmbedded(schemafiles.ArticleSearch, raw); err != nil {
		return nil, err
	}

	var result types.ArticleSearchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	if errs := ValidateStruct("", result); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &result, nil
}

// ValidateDeepDive decodes raw model output into a DeepDiveResult. Schema
// violations and chart shape errors are reported together; struct rules and
// cross-field invariants are checked once the document decodes.
func ValidateDeepDive(raw string) (*types.DeepDiveResult, error) {
	if err := ensureJSONObject(raw); err != nil {
		return nil, err
	}

	var collected []FieldError
	if err := ValidateEmbedded(schemafiles.DeepDive, raw); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		collected = append(collected, ve.Errors...)
	}

	var result types.DeepDiveResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		var shapeErr *types.ChartShapeError
		if errors.As(err, &shapeErr) {
			collected = append(collected, FieldError{Field: shapeErr.Field, Message: shapeErr.Message})
		} else {
			collected = append(collected, FieldError{Field: "(root)", Message: err.Error()})
		}
		return nil, &ValidationError{Errors: collected}
	}
	if len(collected) > 0 {
		return nil, &ValidationError{Errors: collected}
	}

	collected = append(collected, InsightInvariants(result.Insights)...)
	collected = append(collected, ValidateStruct("chart", result.Chart)...)
	collected = append(collected, ChartInvariants(result.Chart)...)
	if len(collected) > 0 {
		return nil, &ValidationError{Errors: collected}
	}
	return &result, nil
}

// InsightInvariants checks that every category has a well-formed block.
func InsightInvariants(insights map[types.Category]types.InsightBlock) []FieldError {
	var errs []FieldError
	for _, category := range types.Categories {
		block, ok := insights[category]
		prefix := "insights." + string(category)
		if !ok {
			errs = append(errs, FieldError{Field: prefix, Message: "is required"})
			continue
		}
		errs = append(errs, ValidateStruct(prefix, block)...)
	}
	for key := range insights {
		if _, err := types.ParseCategory(string(key)); err != nil {
			errs = append(errs, FieldError{Field: "insights." + string(key), Message: "unknown category"})
		}
	}
	return errs
}

// ChartInvariants checks the cross-field rules of a decoded chart.
func ChartInvariants(chart types.ChartSpec) []FieldError {
	var errs []FieldError
	switch c := chart.(type) {
	case types.AxisSingleChart:
		if len(c.Values) != len(c.Categories) {
			errs = append(errs, FieldError{
				Field:   "chart.values",
				Message: fmt.Sprintf("categories and values must be same length (categories=%d, values=%d)", len(c.Categories), len(c.Values)),
			})
		}
	case types.AxisMultiChart:
		for i, s := range c.Series {
			if len(s.Data) != len(c.Categories) {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("chart.series[%d].data", i),
					Message: fmt.Sprintf("each series.data length must match categories length (categories=%d, data=%d)", len(c.Categories), len(s.Data)),
				})
			}
		}
	case types.PieChart:
		for i, slice := range c.Slices {
			if strings.TrimSpace(slice.Name) == "" {
				errs = append(errs, FieldError{Field: fmt.Sprintf("chart.slices[%d].name", i), Message: "is required"})
			}
		}
	case nil:
		errs = append(errs, FieldError{Field: "chart", Message: "is required"})
	default:
		errs = append(errs, FieldError{Field: "chart", Message: fmt.Sprintf("unknown chart variant %T", chart)})
	}
	return errs
}

func ensureJSONObject(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "response is empty"}}}
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "response is not a JSON object: " + err.Error()}}}
	}
	return nil
}
