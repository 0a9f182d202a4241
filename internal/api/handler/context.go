package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/api/middleware"
	"github.com/utilityops/meter-api/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware. Its
// presence proves the middleware ran.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	return middleware.PrincipalFrom(c)
}

// pathID parses the int64 path parameter name.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// bindAndValidate binds the request body into req and runs struct validation.
// Bind failures answer 400, validation failures 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
