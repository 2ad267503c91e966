package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan-api/internal/dto"
)

type viewServiceMock struct {
	dayResp   *dto.DayViewResponse
	weekResp  *dto.WeekViewResponse
	monthResp *dto.MonthViewResponse
	err       error

	lastDate    time.Time
	lastYear    int
	lastMonth   int
	lastInclude bool
}

func (m *viewServiceMock) DayView(ctx context.Context, date time.Time, includeTasks bool) (*dto.DayViewResponse, error) {
	m.lastDate = date
	m.lastInclude = includeTasks
	return m.dayResp, m.err
}

func (m *viewServiceMock) WeekView(ctx context.Context, date time.Time, includeTasks bool) (*dto.WeekViewResponse, error) {
	m.lastDate = date
	m.lastInclude = includeTasks
	return m.weekResp, m.err
}

func (m *viewServiceMock) MonthView(ctx context.Context, year, month int, includeTasks bool) (*dto.MonthViewResponse, error) {
	m.lastYear = year
	m.lastMonth = month
	m.lastInclude = includeTasks
	return m.monthResp, m.err
}

func TestViewHandlerDay(t *testing.T) {
	mockSvc := &viewServiceMock{dayResp: &dto.DayViewResponse{Day: dto.CalendarDay{Date: "2024-01-03"}}}
	handler := NewViewHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/calendar/views/day?date=2024-01-03&include_tasks=true", nil)
	handler.Day(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), mockSvc.lastDate)
	assert.True(t, mockSvc.lastInclude)
	assert.Contains(t, w.Body.String(), `"date":"2024-01-03"`)
}

func TestViewHandlerDayMissingDate(t *testing.T) {
	handler := NewViewHandler(&viewServiceMock{})

	c, w := testContext(t, http.MethodGet, "/calendar/views/day", nil)
	handler.Day(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "date is required")
}

func TestViewHandlerWeek(t *testing.T) {
	mockSvc := &viewServiceMock{weekResp: &dto.WeekViewResponse{Week: dto.CalendarWeek{WeekStart: "2024-01-01"}}}
	handler := NewViewHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/calendar/views/week?date=2024-01-04", nil)
	handler.Week(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"week_start":"2024-01-01"`)
}

func TestViewHandlerWeekBadDate(t *testing.T) {
	handler := NewViewHandler(&viewServiceMock{})

	c, w := testContext(t, http.MethodGet, "/calendar/views/week?date=Jan-4", nil)
	handler.Week(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewHandlerMonth(t *testing.T) {
	mockSvc := &viewServiceMock{monthResp: &dto.MonthViewResponse{Month: dto.CalendarMonth{Year: 2024, Month: 2}}}
	handler := NewViewHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/calendar/views/month?year=2024&month=2", nil)
	handler.Month(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, mockSvc.lastYear)
	assert.Equal(t, 2, mockSvc.lastMonth)
}

func TestViewHandlerMonthMissingParams(t *testing.T) {
	handler := NewViewHandler(&viewServiceMock{})

	c, w := testContext(t, http.MethodGet, "/calendar/views/month?month=2", nil)
	handler.Month(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = testContext(t, http.MethodGet, "/calendar/views/month?year=2024", nil)
	handler.Month(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
