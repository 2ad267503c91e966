package dto

import (
	"time"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

// CreateEventRequest describes the create payload.
type CreateEventRequest struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=1000"`
	StartDatetime  time.Time  `json:"start_datetime" validate:"required"`
	EndDatetime    *time.Time `json:"end_datetime"`
	IsAllDay       bool       `json:"is_all_day"`
	Location       *string    `json:"location" validate:"omitempty,max=200"`
	Color          *string    `json:"color" validate:"omitempty,len=7,hexcolor"`
	RecurrenceRule *string    `json:"recurrence_rule" validate:"omitempty,max=255"`
	TaskID         *int64     `json:"task_id"`
}

// UpdateEventRequest describes a partial update; absent fields stay unchanged.
type UpdateEventRequest struct {
	Title          *string    `json:"title" validate:"omitempty,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=1000"`
	StartDatetime  *time.Time `json:"start_datetime"`
	EndDatetime    *time.Time `json:"end_datetime"`
	IsAllDay       *bool      `json:"is_all_day"`
	Location       *string    `json:"location" validate:"omitempty,max=200"`
	Color          *string    `json:"color" validate:"omitempty,len=7,hexcolor"`
	RecurrenceRule *string    `json:"recurrence_rule" validate:"omitempty,max=255"`
	TaskID         *int64     `json:"task_id"`
}

// CreateExceptionRequest skips or replaces a single occurrence of a
// recurring event.
type CreateExceptionRequest struct {
	ExceptionDate   string `json:"exception_date" validate:"required,datetime=2006-01-02"`
	Cancelled       bool   `json:"cancelled"`
	ModifiedEventID *int64 `json:"modified_event_id"`
}

// EventResponse is a stored event annotated for API consumption.
type EventResponse struct {
	models.CalendarEvent
	IsRecurring bool                `json:"is_recurring"`
	Task        *models.TaskSummary `json:"task,omitempty"`
}

// DeleteEventResponse reports the outcome of a delete.
type DeleteEventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CalendarDay is one cell of a view grid.
type CalendarDay struct {
	Date           string          `json:"date"`
	Events         []EventResponse `json:"events"`
	IsToday        bool            `json:"is_today"`
	IsCurrentMonth bool            `json:"is_current_month"`
}

// CalendarWeek is a Monday-anchored run of seven day cells.
type CalendarWeek struct {
	WeekStart string        `json:"week_start"`
	WeekEnd   string        `json:"week_end"`
	Days      []CalendarDay `json:"days"`
}

// CalendarMonth is the full grid for a month, padded to whole weeks.
type CalendarMonth struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Weeks []CalendarWeek `json:"weeks"`
}

// DayViewResponse wraps a single day plus the optional deadline overlay.
type DayViewResponse struct {
	Day           CalendarDay           `json:"day"`
	TaskDeadlines []models.TaskDeadline `json:"task_deadlines,omitempty"`
}

// WeekViewResponse wraps a week plus the optional deadline overlay.
type WeekViewResponse struct {
	Week          CalendarWeek          `json:"week"`
	TaskDeadlines []models.TaskDeadline `json:"task_deadlines,omitempty"`
}

// MonthViewResponse wraps a month grid plus the optional deadline overlay.
type MonthViewResponse struct {
	Month         CalendarMonth         `json:"month"`
	TaskDeadlines []models.TaskDeadline `json:"task_deadlines,omitempty"`
}

// ConflictCheckRequest proposes an interval to test against stored events.
// A missing end produces an instantaneous point.
type ConflictCheckRequest struct {
	StartDatetime  time.Time  `json:"start_datetime" validate:"required"`
	EndDatetime    *time.Time `json:"end_datetime"`
	ExcludeEventID *int64     `json:"exclude_event_id"`
}

// Conflict is one overlapping event with exact overlap accounting.
type Conflict struct {
	Event          EventResponse `json:"event"`
	OverlapStart   time.Time     `json:"overlap_start"`
	OverlapEnd     time.Time     `json:"overlap_end"`
	OverlapMinutes int           `json:"overlap_minutes"`
}

// ConflictCheckResponse lists all conflicts ordered by event start.
type ConflictCheckResponse struct {
	HasConflicts bool       `json:"has_conflicts"`
	Conflicts    []Conflict `json:"conflicts"`
}
