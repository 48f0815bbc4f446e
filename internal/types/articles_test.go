//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishedISO(t *testing.T) {
	eastern := time.FixedZone("EDT", -4*60*60)
	tests := []struct {
		name      string
		published *time.Time
		expected  string
	}{
		{"unknown", nil, ""},
		{"whole seconds", ptr(time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)), "2024-05-01T14:30:00.000Z"},
		{"truncates to milliseconds", ptr(time.Date(2024, 5, 1, 14, 30, 0, 123456789, time.UTC)), "2024-05-01T14:30:00.123Z"},
		{"converted to UTC", ptr(time.Date(2024, 5, 1, 10, 30, 0, 5_000_000, eastern)), "2024-05-01T14:30:00.005Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := CandidateArticle{Title: "t", PublishedAt: tt.published}
			assert.Equal(t, tt.expected, a.PublishedISO())
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
