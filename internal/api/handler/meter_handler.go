package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/api/metrics"
	"github.com/utilityops/meter-api/internal/core/ports"
)

const errUnitDerived = "unit is derived from the meter type and cannot be set"

// MeterHandler handles HTTP requests for meters.
type MeterHandler struct {
	service ports.MeterService
}

func NewMeterHandler(service ports.MeterService) *MeterHandler {
	return &MeterHandler{service: service}
}

// List handles GET /v1/meters.
//
// @Summary      List meters visible to the caller
// @Tags         meters
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   meterResponse
// @Router       /v1/meters [get]
func (h *MeterHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	meters, err := h.service.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeterResponses(meters))
}

// Get handles GET /v1/meters/:ean.
//
// @Summary      Get a meter
// @Tags         meters
// @Produce      json
// @Security     BearerAuth
// @Param        ean  path      string  true  "Meter EAN"
// @Success      200  {object}  meterResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/meters/{ean} [get]
func (h *MeterHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	m, err := h.service.Get(c.Request().Context(), p, c.Param("ean"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeterResponse(m))
}

// Create handles POST /v1/meters.
//
// @Summary      Register a meter
// @Tags         meters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createMeterRequest  true  "New meter"
// @Success      201   {object}  meterResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/meters [post]
func (h *MeterHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createMeterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Unit != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errUnitDerived)
	}
	m, err := h.service.Create(c.Request().Context(), p, toCreateMeterInput(req))
	if err != nil {
		return err
	}
	metrics.MetersCreatedTotal.WithLabelValues(string(m.Type)).Inc()
	return c.JSON(http.StatusCreated, toMeterResponse(m))
}

// Update handles PATCH /v1/meters/:ean.
//
// @Summary      Record a reading or change the status of a meter
// @Tags         meters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ean   path      string              true  "Meter EAN"
// @Param        body  body      updateMeterRequest  true  "Fields to change"
// @Success      200   {object}  meterResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/meters/{ean} [patch]
func (h *MeterHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req updateMeterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Unit != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errUnitDerived)
	}
	m, err := h.service.Update(c.Request().Context(), p, c.Param("ean"), toUpdateMeterInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeterResponse(m))
}

// Delete handles DELETE /v1/meters/:ean.
//
// @Summary      Delete a meter
// @Tags         meters
// @Security     BearerAuth
// @Param        ean  path  string  true  "Meter EAN"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/meters/{ean} [delete]
func (h *MeterHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), p, c.Param("ean")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// History handles GET /v1/meters/:ean/readings.
//
// @Summary      Reading history of a meter, newest first
// @Tags         meters
// @Produce      json
// @Security     BearerAuth
// @Param        ean    path      string  true   "Meter EAN"
// @Param        limit  query     int     false  "Maximum number of records (default 50, max 500)"
// @Success      200    {object}  meterHistoryResponse
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /v1/meters/{ean}/readings [get]
func (h *MeterHandler) History(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	ean := c.Param("ean")
	recs, err := h.service.History(c.Request().Context(), p, ean, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHistoryResponse(ean, recs))
}
