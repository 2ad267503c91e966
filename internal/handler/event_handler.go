package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	"github.com/pulseplan/pulseplan-api/internal/models"
	"github.com/pulseplan/pulseplan-api/internal/service"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
	"github.com/pulseplan/pulseplan-api/pkg/response"
)

type eventService interface {
	Create(ctx context.Context, req dto.CreateEventRequest) (*dto.EventResponse, error)
	Get(ctx context.Context, id int64) (*dto.EventResponse, error)
	List(ctx context.Context, req service.ListEventsRequest) ([]dto.EventResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateEventRequest) (*dto.EventResponse, error)
	Delete(ctx context.Context, id int64, deleteSeries bool) (*dto.DeleteEventResponse, error)
	CreateException(ctx context.Context, parentID int64, req dto.CreateExceptionRequest) (*models.EventException, error)
	ListExceptions(ctx context.Context, parentID int64) ([]models.EventException, error)
	DeleteException(ctx context.Context, parentID, excID int64) error
}

// EventHandler exposes calendar event CRUD and exception management.
type EventHandler struct {
	service eventService
}

// NewEventHandler constructs the handler.
func NewEventHandler(service eventService) *EventHandler {
	return &EventHandler{service: service}
}

// Create godoc
// @Summary Create a calendar event
// @Tags Calendar
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /calendar/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	event, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Get godoc
// @Summary Fetch a calendar event with task details
// @Tags Calendar
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// List godoc
// @Summary List calendar events by start date
// @Tags Calendar
// @Produce json
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param task_id query int false "Linked task ID"
// @Param include_tasks query bool false "Resolve linked task summaries"
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *EventHandler) List(c *gin.Context) {
	req := service.ListEventsRequest{IncludeTasks: parseBoolQuery(c, "include_tasks")}

	start, err := parseCalendarDate(c.Query("start_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseCalendarDate(c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StartDate = start
	req.EndDate = end

	if raw := c.Query("task_id"); raw != "" {
		taskID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid task_id"))
			return
		}
		req.TaskID = &taskID
	}

	events, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}

// Update godoc
// @Summary Partially update a calendar event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	event, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Delete godoc
// @Summary Delete a calendar event
// @Tags Calendar
// @Produce json
// @Param id path int true "Event ID"
// @Param delete_series query bool false "Also remove override events of a recurring series"
// @Success 200 {object} response.Envelope
// @Router /calendar/events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Delete(c.Request.Context(), id, parseBoolQuery(c, "delete_series"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// CreateException godoc
// @Summary Skip or replace one occurrence of a recurring event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path int true "Parent event ID"
// @Success 201 {object} response.Envelope
// @Router /calendar/events/{id}/exceptions [post]
func (h *EventHandler) CreateException(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	exc, err := h.service.CreateException(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exc)
}

// ListExceptions godoc
// @Summary List exceptions of a recurring event
// @Tags Calendar
// @Produce json
// @Param id path int true "Parent event ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/events/{id}/exceptions [get]
func (h *EventHandler) ListExceptions(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	exceptions, err := h.service.ListExceptions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exceptions)
}

// DeleteException godoc
// @Summary Remove an exception of a recurring event
// @Tags Calendar
// @Param id path int true "Parent event ID"
// @Param excID path int true "Exception ID"
// @Success 204
// @Router /calendar/events/{id}/exceptions/{excID} [delete]
func (h *EventHandler) DeleteException(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	excID, err := parseID(c, "excID")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteException(c.Request.Context(), id, excID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	return id, nil
}

func parseCalendarDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func parseBoolQuery(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(c.DefaultQuery(key, "false"))
	if err != nil {
		return false
	}
	return value
}
