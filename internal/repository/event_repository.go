package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

const eventColumns = "id, title, description, start_datetime, end_datetime, is_all_day, location, color, recurrence_rule, task_id, created_at, updated_at"

// EventRepository persists calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event and fills in the generated id and timestamps.
func (r *EventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO calendar_events (title, description, start_datetime, end_datetime, is_all_day, location, color, recurrence_rule, task_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := r.db.GetContext(ctx, &event.ID, query,
		event.Title, event.Description, event.StartDatetime, event.EndDatetime,
		event.IsAllDay, event.Location, event.Color, event.RecurrenceRule,
		event.TaskID, event.CreatedAt, event.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// GetByID fetches an event.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM calendar_events WHERE id = $1", eventColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByIDs fetches a set of events keyed by id.
func (r *EventRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.CalendarEvent, error) {
	result := make(map[int64]*models.CalendarEvent, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := fmt.Sprintf("SELECT %s FROM calendar_events WHERE id = ANY($1)", eventColumns)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get calendar events by ids: %w", err)
	}
	for i := range events {
		result[events[i].ID] = &events[i]
	}
	return result, nil
}

// List returns events whose start instant's calendar date falls inside the
// filter bounds. The range predicates ride the start_datetime index; both
// bounds are inclusive.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.CalendarEvent, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("start_datetime::date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("start_datetime::date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}
	if filter.TaskID != nil {
		where = append(where, fmt.Sprintf("task_id = $%d", len(args)+1))
		args = append(args, *filter.TaskID)
	}
	query := fmt.Sprintf("SELECT %s FROM calendar_events WHERE %s ORDER BY start_datetime ASC, id ASC",
		eventColumns, strings.Join(where, " AND "))
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// ListForWindow returns the raw events a view needs: events starting inside
// the window plus recurring parents that started before it and may still
// produce occurrences inside. The recurrence arm rides the partial index on
// recurrence_rule.
func (r *EventRepository) ListForWindow(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
WHERE (start_datetime::date >= $1 AND start_datetime::date <= $2)
   OR (recurrence_rule IS NOT NULL AND start_datetime::date <= $2)
ORDER BY start_datetime ASC, id ASC`, eventColumns)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, from, to); err != nil {
		return nil, fmt.Errorf("list calendar events for window: %w", err)
	}
	return events, nil
}

// FindOverlapping returns events whose interval overlaps [start, end) using
// the half-open test, ordered by start then id. A missing end collapses the
// stored interval to its start instant.
func (r *EventRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID *int64) ([]models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
WHERE start_datetime < $2
  AND COALESCE(end_datetime, start_datetime) > $1
  AND ($3::bigint IS NULL OR id <> $3)
ORDER BY start_datetime ASC, id ASC`, eventColumns)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, start, end, excludeID); err != nil {
		return nil, fmt.Errorf("find overlapping events: %w", err)
	}
	return events, nil
}

// Update persists all mutable fields of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendar_events SET title = :title, description = :description, start_datetime = :start_datetime,
end_datetime = :end_datetime, is_all_day = :is_all_day, location = :location, color = :color,
recurrence_rule = :recurrence_rule, task_id = :task_id, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	return nil
}

// Delete removes an event, reporting whether a row was deleted.
func (r *EventRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete calendar event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete calendar event: %w", err)
	}
	return affected > 0, nil
}

// DeleteByIDs removes a set of events in one statement.
func (r *EventRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return fmt.Errorf("delete calendar events: %w", err)
	}
	return nil
}
