package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v66/github"

	"github.com/fabriko/shipwright/internal/domain/entities"
)

// mapError translates go-github errors into the domain error taxonomy.
// Unrecognized failures (timeouts, connection resets) are wrapped without a
// kind, which the polling layer treats as transient.
func mapError(err error, message string) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return entities.WrapError(entities.ErrRateLimited, message, err)
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return entities.WrapError(entities.ErrRateLimited, message, err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return entities.WrapError(entities.ErrAccessDenied, message, err)
		case http.StatusNotFound:
			return entities.WrapError(entities.ErrNotFound, message, err)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			// Covers malformed inputs, unknown refs, and non-fast-forward
			// ref updates.
			return entities.WrapError(entities.ErrDispatchRejected, message, err)
		}
	}

	return fmt.Errorf("%s: %w", message, err)
}
