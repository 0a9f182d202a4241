package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/core/ports"
)

// LocationHandler handles HTTP requests for locations.
type LocationHandler struct {
	service ports.LocationService
}

func NewLocationHandler(service ports.LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// List handles GET /v1/locations.
//
// @Summary      List locations visible to the caller
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   locationResponse
// @Router       /v1/locations [get]
func (h *LocationHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	locs, err := h.service.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLocationResponses(locs))
}

// Get handles GET /v1/locations/:id.
//
// @Summary      Get a location
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Location id"
// @Success      200  {object}  locationResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/locations/{id} [get]
func (h *LocationHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	loc, err := h.service.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLocationResponse(loc))
}

// Create handles POST /v1/locations.
//
// @Summary      Create a location
// @Tags         locations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createLocationRequest  true  "New location"
// @Success      201   {object}  locationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/locations [post]
func (h *LocationHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createLocationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	loc, err := h.service.Create(c.Request().Context(), p, ports.CreateLocationInput{
		Name:    req.Name,
		Lat:     req.Lat,
		Lon:     req.Lon,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toLocationResponse(loc))
}

// Update handles PATCH /v1/locations/:id.
//
// @Summary      Update a location
// @Tags         locations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                    true  "Location id"
// @Param        body  body      updateLocationRequest  true  "Fields to change"
// @Success      200   {object}  locationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/locations/{id} [patch]
func (h *LocationHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateLocationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	loc, err := h.service.Update(c.Request().Context(), p, id, ports.UpdateLocationInput{
		Name:    req.Name,
		Lat:     req.Lat,
		Lon:     req.Lon,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLocationResponse(loc))
}

// Delete handles DELETE /v1/locations/:id.
//
// @Summary      Delete an empty location
// @Tags         locations
// @Security     BearerAuth
// @Param        id   path  int  true  "Location id"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/locations/{id} [delete]
func (h *LocationHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
