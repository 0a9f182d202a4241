package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/utilityops/meter-api/internal/core/ports"
)

const maxBatchSize = 1000

// ReadingDispatcher is the interface the handler uses to enqueue readings.
type ReadingDispatcher interface {
	EnqueueBatch(ctx context.Context, readings []ports.ReadingInput) error
}

// ReadingHandler handles batch reading ingestion.
type ReadingHandler struct {
	dispatcher ReadingDispatcher
}

// NewReadingHandler creates a ReadingHandler backed by the given dispatcher.
func NewReadingHandler(dispatcher ReadingDispatcher) *ReadingHandler {
	return &ReadingHandler{dispatcher: dispatcher}
}

// ReceiveBatch handles POST /v1/meters/readings/batch. Readings are validated
// for shape here and applied asynchronously; 202 only means accepted.
//
// @Summary      Ingest a batch of meter readings
// @Tags         meters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []readingRequest  true  "Array of readings"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/meters/readings/batch [post]
func (h *ReadingHandler) ReceiveBatch(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var reqs []readingRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}
	if len(reqs) > maxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("batch cannot exceed %d readings", maxBatchSize))
	}

	batchID := uuid.NewString()
	inputs := make([]ports.ReadingInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("reading[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, ports.ReadingInput{
			BatchID:    batchID,
			EAN:        req.EAN,
			Reading:    req.Reading,
			RecordedBy: p,
		})
	}

	if err := h.dispatcher.EnqueueBatch(c.Request().Context(), inputs); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "reading queue unavailable")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "readings accepted",
		BatchID: batchID,
		Count:   len(inputs),
	})
}
