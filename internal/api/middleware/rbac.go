package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/core/policy"
)

// Authorize rejects the request early when the principal's role holds no
// grant for action. Record-level scope checks still happen in the services.
func Authorize(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := PrincipalFrom(c)
			if err != nil {
				return err
			}
			if _, err := policy.Authorize(p, action); err != nil {
				return err
			}
			return next(c)
		}
	}
}
