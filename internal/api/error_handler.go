package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/api/metrics"
	"github.com/utilityops/meter-api/internal/api/middleware"
	"github.com/utilityops/meter-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// invariantRules names each business rule for the violations metric.
var invariantRules = []struct {
	err  error
	name string
}{
	{domain.ErrOwnerMustBeConsumer, "owner_must_be_consumer"},
	{domain.ErrLocationHasMeters, "location_has_meters"},
	{domain.ErrReadingMustIncrease, "reading_must_increase"},
	{domain.ErrCannotDeleteSelf, "cannot_delete_self"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		role := "unknown"
		if p, ok := c.Get(middleware.PrincipalKey).(domain.Principal); ok {
			role = string(p.Role)
		}
		metrics.AuthzDeniedTotal.WithLabelValues(role).Inc()
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, notFoundMessage(err)
	case errors.Is(err, domain.ErrInvariant):
		metrics.InvariantViolationsTotal.WithLabelValues(ruleName(err)).Inc()
		return http.StatusBadRequest, ruleMessage(err)
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, conflictMessage(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

func ruleName(err error) string {
	for _, r := range invariantRules {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "other"
}

// ruleMessage returns the sentinel text of the violated rule, without any
// context the service wrapped around it.
func ruleMessage(err error) string {
	for _, r := range invariantRules {
		if errors.Is(err, r.err) {
			return r.err.Error()
		}
	}
	return err.Error()
}

func notFoundMessage(err error) string {
	for _, e := range []error{domain.ErrUserNotFound, domain.ErrLocationNotFound, domain.ErrMeterNotFound} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return domain.ErrNotFound.Error()
}

func conflictMessage(err error) string {
	for _, e := range []error{domain.ErrUserExists, domain.ErrMeterExists} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return domain.ErrConflict.Error()
}
