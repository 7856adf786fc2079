package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonathan/jobstats/internal/aggregation"
	"github.com/jonathan/jobstats/internal/dataaccess"
	"github.com/jonathan/jobstats/internal/types"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	// Upstream failures win over any validation or not-found error they carry.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		return 499
	case errors.Is(err, aggregation.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case isValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, dataaccess.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func isValidation(err error) bool {
	var verr *types.ValidationError
	return errors.As(err, &verr)
}

// publicMessage hides transport detail from callers while keeping validation feedback.
func publicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		var verr *types.ValidationError
		errors.As(err, &verr)
		return verr.Error()
	case http.StatusNotFound:
		return "Not found"
	case http.StatusGatewayTimeout:
		return "Upstream timed out"
	case http.StatusBadGateway:
		return "Upstream unavailable"
	default:
		return "Internal server error"
	}
}
