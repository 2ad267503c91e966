package models

import "time"

// CalendarEvent is a stored calendar entry. Instants are absolute; the
// calendar day an event belongs to is the date portion of StartDatetime.
type CalendarEvent struct {
	ID             int64      `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description,omitempty"`
	StartDatetime  time.Time  `db:"start_datetime" json:"start_datetime"`
	EndDatetime    *time.Time `db:"end_datetime" json:"end_datetime,omitempty"`
	IsAllDay       bool       `db:"is_all_day" json:"is_all_day"`
	Location       *string    `db:"location" json:"location,omitempty"`
	Color          *string    `db:"color" json:"color,omitempty"`
	RecurrenceRule *string    `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	TaskID         *int64     `db:"task_id" json:"task_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsRecurring reports whether the event defines a recurring series.
func (e *CalendarEvent) IsRecurring() bool {
	return e.RecurrenceRule != nil && *e.RecurrenceRule != ""
}

// EffectiveEnd returns the end instant, falling back to the start for
// point-in-time events.
func (e *CalendarEvent) EffectiveEnd() time.Time {
	if e.EndDatetime != nil {
		return *e.EndDatetime
	}
	return e.StartDatetime
}

// Duration returns the event length; zero for point-in-time events.
func (e *CalendarEvent) Duration() time.Duration {
	return e.EffectiveEnd().Sub(e.StartDatetime)
}

// EventException skips or replaces a single occurrence of a recurring event.
type EventException struct {
	ID              int64     `db:"id" json:"id"`
	ParentEventID   int64     `db:"parent_event_id" json:"parent_event_id"`
	ExceptionDate   time.Time `db:"exception_date" json:"exception_date"`
	Cancelled       bool      `db:"cancelled" json:"cancelled"`
	ModifiedEventID *int64    `db:"modified_event_id" json:"modified_event_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// EventFilter narrows down stored events by the calendar date of their start
// instant and by linked task.
type EventFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	TaskID    *int64
}
