package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/generation"
	"github.com/jonathan/campaign-briefing/internal/llm"
	"github.com/jonathan/campaign-briefing/internal/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "category", Message: "unknown"}
	assert.Equal(t, "validation error: category - unknown", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.Equal(t, "validation error: category - unknown", publicMessage(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"input", &pipeline.InputError{Field: "issue", Message: "must not be empty"}, http.StatusBadRequest, "invalid_input"},
		{"no candidates", &feeds.NoCandidatesError{Sources: 8, Failed: 8}, http.StatusBadGateway, "no_candidates"},
		{"schema", fmt.Errorf("wrapped: %w", &generation.SchemaValidationError{Operation: "Deep dive"}), http.StatusBadGateway, "schema_validation"},
		{"transport", &generation.TransportError{Operation: "x", Attempts: 3, Cause: errors.New("reset")}, http.StatusBadGateway, "transport"},
		{"gateway", &llm.UpstreamGatewayError{Provider: llm.ProviderOpenRouter}, http.StatusBadGateway, "upstream_gateway"},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusBadGateway, "timeout"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
		})
	}
}

func TestPublicMessage_HidesUpstreamDetail(t *testing.T) {
	err := &generation.TransportError{Operation: "Article selection", Attempts: 3, Cause: errors.New("401 from https://openrouter.ai")}
	assert.Equal(t, UnavailableMessage, publicMessage(err))
	assert.Equal(t, "internal error", publicMessage(errors.New("prompt missing")))
}
