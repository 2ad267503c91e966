package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
	"github.com/pulseplan/pulseplan-api/pkg/response"
)

type viewService interface {
	DayView(ctx context.Context, date time.Time, includeTasks bool) (*dto.DayViewResponse, error)
	WeekView(ctx context.Context, date time.Time, includeTasks bool) (*dto.WeekViewResponse, error)
	MonthView(ctx context.Context, year, month int, includeTasks bool) (*dto.MonthViewResponse, error)
}

// ViewHandler exposes the day/week/month view endpoints.
type ViewHandler struct {
	service viewService
}

// NewViewHandler constructs the handler.
func NewViewHandler(service viewService) *ViewHandler {
	return &ViewHandler{service: service}
}

// Day godoc
// @Summary Single-day calendar view
// @Tags Views
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param include_tasks query bool false "Overlay task deadlines"
// @Success 200 {object} response.Envelope
// @Router /calendar/views/day [get]
func (h *ViewHandler) Day(c *gin.Context) {
	date, err := requireCalendarDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.DayView(c.Request.Context(), date, parseBoolQuery(c, "include_tasks"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Week godoc
// @Summary Monday-anchored week view containing a date
// @Tags Views
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param include_tasks query bool false "Overlay task deadlines"
// @Success 200 {object} response.Envelope
// @Router /calendar/views/week [get]
func (h *ViewHandler) Week(c *gin.Context) {
	date, err := requireCalendarDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.WeekView(c.Request.Context(), date, parseBoolQuery(c, "include_tasks"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Month godoc
// @Summary Full month grid padded to whole weeks
// @Tags Views
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Param include_tasks query bool false "Overlay task deadlines"
// @Success 200 {object} response.Envelope
// @Router /calendar/views/month [get]
func (h *ViewHandler) Month(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid month"))
		return
	}
	view, err := h.service.MonthView(c.Request.Context(), year, month, parseBoolQuery(c, "include_tasks"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

func requireCalendarDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return parsed, nil
}
