package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/api/metrics"
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// PrincipalKey is the echo context key the Auth middleware stores the
// resolved principal under.
const PrincipalKey = "principal"

// Auth resolves the bearer token into a principal and injects it into context.
// Every failure answers 401 with the same body.
func Auth(authn ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				metrics.AuthAttemptsTotal.WithLabelValues("token", "failure").Inc()
				return unauthorized(c)
			}

			p, err := authn.Authenticate(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrInvalidCredentials) {
					metrics.AuthAttemptsTotal.WithLabelValues("token", "failure").Inc()
					return unauthorized(c)
				}
				return err
			}

			metrics.AuthAttemptsTotal.WithLabelValues("token", "success").Inc()
			c.Set(PrincipalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal injected by Auth. It fails with 401
// when the middleware did not run.
func PrincipalFrom(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	if !ok || p.UserID == 0 {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	return p, nil
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return domain.ErrInvalidCredentials
}
