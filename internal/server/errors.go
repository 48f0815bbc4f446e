// Package server provides the HTTP API for campaign briefings.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/generation"
	"github.com/jonathan/campaign-briefing/internal/llm"
	"github.com/jonathan/campaign-briefing/internal/pipeline"
)

// UnavailableMessage is the only detail clients see for upstream failures.
const UnavailableMessage = "temporarily unavailable"

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		inputErr      *pipeline.InputError
		noCandidates  *feeds.NoCandidatesError
		schemaErr     *generation.SchemaValidationError
		transportErr  *generation.TransportError
		gatewayErr    *llm.UpstreamGatewayError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &noCandidates),
		errors.As(err, &schemaErr),
		errors.As(err, &transportErr),
		errors.As(err, &gatewayErr),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKind names the error category for logs and metrics.
func ErrorKind(err error) string {
	var (
		validationErr *ErrValidation
		inputErr      *pipeline.InputError
		noCandidates  *feeds.NoCandidatesError
		schemaErr     *generation.SchemaValidationError
		transportErr  *generation.TransportError
		gatewayErr    *llm.UpstreamGatewayError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &inputErr):
		return "invalid_input"
	case errors.As(err, &noCandidates):
		return "no_candidates"
	case errors.As(err, &gatewayErr):
		return "upstream_gateway"
	case errors.As(err, &schemaErr):
		return "schema_validation"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// publicMessage hides internal detail for anything but a bad request.
func publicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusBadGateway:
		return UnavailableMessage
	default:
		return "internal error"
	}
}
