package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
	"github.com/pulseplan/pulseplan-api/pkg/response"
)

type conflictService interface {
	Check(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
}

// ConflictHandler exposes the conflict check endpoint.
type ConflictHandler struct {
	service conflictService
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(service conflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// Check godoc
// @Summary Find events overlapping a proposed interval
// @Tags Conflicts
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/conflicts/check [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
