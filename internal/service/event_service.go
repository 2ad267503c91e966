package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	"github.com/pulseplan/pulseplan-api/internal/models"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
	GetByID(ctx context.Context, id int64) (*models.CalendarEvent, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.CalendarEvent, error)
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}

type exceptionStore interface {
	Upsert(ctx context.Context, exc *models.EventException) error
	GetByID(ctx context.Context, id int64) (*models.EventException, error)
	ListByParent(ctx context.Context, parentID int64) ([]models.EventException, error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteForEvent(ctx context.Context, eventID int64) error
}

type taskLinker interface {
	Lookup(ctx context.Context, id int64) *models.TaskSummary
	Exists(ctx context.Context, id int64) (bool, error)
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// EventService manages calendar events and their exceptions.
type EventService struct {
	repo       eventRepository
	exceptions exceptionStore
	tasks      taskLinker
	validator  *validator.Validate
	viewCache  *CacheService
	logger     *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, exceptions exceptionStore, tasks taskLinker, validate *validator.Validate, viewCache *CacheService, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, exceptions: exceptions, tasks: tasks, validator: validate, viewCache: viewCache, logger: logger}
}

// ListEventsRequest describes filters for listing events.
type ListEventsRequest struct {
	StartDate    *time.Time
	EndDate      *time.Time
	TaskID       *int64
	IncludeTasks bool
}

// Create registers a new event.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest) (*dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	event := &models.CalendarEvent{
		Title:          req.Title,
		Description:    req.Description,
		StartDatetime:  req.StartDatetime,
		EndDatetime:    req.EndDatetime,
		IsAllDay:       req.IsAllDay,
		Location:       req.Location,
		Color:          req.Color,
		RecurrenceRule: req.RecurrenceRule,
		TaskID:         req.TaskID,
	}
	if err := s.validateEvent(ctx, event); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.invalidateViews(ctx)
	return s.annotate(ctx, event, false), nil
}

// Get returns an event with its resolved task summary.
func (s *EventService) Get(ctx context.Context, id int64) (*dto.EventResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get event")
	}
	return s.annotate(ctx, event, true), nil
}

// List returns events whose start date falls inside the requested bounds.
func (s *EventService) List(ctx context.Context, req ListEventsRequest) ([]dto.EventResponse, error) {
	events, err := s.repo.List(ctx, models.EventFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		TaskID:    req.TaskID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	responses := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, *s.annotate(ctx, &events[i], req.IncludeTasks))
	}
	return responses, nil
}

// Update merges the provided fields over the stored event, re-validates the
// result and persists it.
func (s *EventService) Update(ctx context.Context, id int64, req dto.UpdateEventRequest) (*dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.StartDatetime != nil {
		event.StartDatetime = *req.StartDatetime
	}
	if req.EndDatetime != nil {
		event.EndDatetime = req.EndDatetime
	}
	if req.IsAllDay != nil {
		event.IsAllDay = *req.IsAllDay
	}
	if req.Location != nil {
		event.Location = req.Location
	}
	if req.Color != nil {
		event.Color = req.Color
	}
	if req.RecurrenceRule != nil {
		event.RecurrenceRule = req.RecurrenceRule
	}
	if req.TaskID != nil {
		event.TaskID = req.TaskID
	}
	if err := s.validateEvent(ctx, event); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.invalidateViews(ctx)
	return s.annotate(ctx, event, true), nil
}

// Delete removes an event and every exception row referencing it as parent
// or as modification override. With deleteSeries set on a recurring event,
// standalone override events of the series are removed as well.
func (s *EventService) Delete(ctx context.Context, id int64, deleteSeries bool) (*dto.DeleteEventResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	message := "Event deleted"
	if event.IsRecurring() {
		message = "Recurring event deleted"
		if deleteSeries {
			exceptions, err := s.exceptions.ListByParent(ctx, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
			}
			var overrideIDs []int64
			for _, exc := range exceptions {
				if exc.ModifiedEventID != nil {
					overrideIDs = append(overrideIDs, *exc.ModifiedEventID)
				}
			}
			if err := s.repo.DeleteByIDs(ctx, overrideIDs); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
			}
			message = fmt.Sprintf("Recurring event series deleted (%d override events removed)", len(overrideIDs))
		}
	}

	if err := s.exceptions.DeleteForEvent(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	if !deleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	s.invalidateViews(ctx)
	return &dto.DeleteEventResponse{Success: true, Message: message}, nil
}

// CreateException skips or replaces one occurrence of a recurring event. An
// existing exception for the same date is replaced.
func (s *EventService) CreateException(ctx context.Context, parentID int64, req dto.CreateExceptionRequest) (*models.EventException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !parent.IsRecurring() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event is not recurring")
	}
	if req.Cancelled == (req.ModifiedEventID != nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of cancelled and modified_event_id must be set")
	}
	if req.ModifiedEventID != nil {
		if *req.ModifiedEventID == parentID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "an event cannot override itself")
		}
		if _, err := s.repo.GetByID(ctx, *req.ModifiedEventID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "override event not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override event")
		}
	}

	date, err := time.Parse("2006-01-02", req.ExceptionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exception_date, expected YYYY-MM-DD")
	}
	exc := &models.EventException{
		ParentEventID:   parentID,
		ExceptionDate:   date,
		Cancelled:       req.Cancelled,
		ModifiedEventID: req.ModifiedEventID,
	}
	if err := s.exceptions.Upsert(ctx, exc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exception")
	}
	s.invalidateViews(ctx)
	return exc, nil
}

// ListExceptions returns all exceptions of a recurring event.
func (s *EventService) ListExceptions(ctx context.Context, parentID int64) ([]models.EventException, error) {
	if _, err := s.repo.GetByID(ctx, parentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	exceptions, err := s.exceptions.ListByParent(ctx, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exceptions")
	}
	return exceptions, nil
}

// DeleteException removes a single exception of a recurring event.
func (s *EventService) DeleteException(ctx context.Context, parentID, excID int64) error {
	exc, err := s.exceptions.GetByID(ctx, excID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exception")
	}
	if exc.ParentEventID != parentID {
		return appErrors.Clone(appErrors.ErrNotFound, "exception not found")
	}
	if _, err := s.exceptions.Delete(ctx, excID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exception")
	}
	s.invalidateViews(ctx)
	return nil
}

// validateEvent enforces field-level rules on a fully merged event. Create
// and update share it so partial updates are held to the same rules.
func (s *EventService) validateEvent(ctx context.Context, event *models.CalendarEvent) error {
	if strings.TrimSpace(event.Title) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
	}
	if utf8.RuneCountInString(event.Title) > 200 {
		return appErrors.Clone(appErrors.ErrValidation, "title must be at most 200 characters")
	}
	if event.Description != nil && utf8.RuneCountInString(*event.Description) > 1000 {
		return appErrors.Clone(appErrors.ErrValidation, "description must be at most 1000 characters")
	}
	if event.Location != nil && utf8.RuneCountInString(*event.Location) > 200 {
		return appErrors.Clone(appErrors.ErrValidation, "location must be at most 200 characters")
	}
	if event.StartDatetime.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start_datetime is required")
	}
	if !event.IsAllDay && event.EndDatetime != nil && !event.EndDatetime.After(event.StartDatetime) {
		return appErrors.Clone(appErrors.ErrValidation, "End datetime must be after start datetime")
	}
	if event.Color != nil && !colorPattern.MatchString(*event.Color) {
		return appErrors.Clone(appErrors.ErrValidation, "color must be a #RRGGBB hex value")
	}
	if event.RecurrenceRule != nil && *event.RecurrenceRule != "" {
		if utf8.RuneCountInString(*event.RecurrenceRule) > 255 {
			return appErrors.Clone(appErrors.ErrValidation, "recurrence_rule must be at most 255 characters")
		}
		if _, err := models.ParseRecurrenceRule(*event.RecurrenceRule); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid recurrence rule: %v", err))
		}
	}
	if event.TaskID != nil {
		exists, err := s.tasks.Exists(ctx, *event.TaskID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify linked task")
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "linked task not found")
		}
	}
	return nil
}

func (s *EventService) annotate(ctx context.Context, event *models.CalendarEvent, resolveTask bool) *dto.EventResponse {
	resp := &dto.EventResponse{CalendarEvent: *event, IsRecurring: event.IsRecurring()}
	if resolveTask && event.TaskID != nil {
		resp.Task = s.tasks.Lookup(ctx, *event.TaskID)
	}
	return resp
}

func (s *EventService) invalidateViews(ctx context.Context) {
	if s.viewCache != nil {
		_ = s.viewCache.Invalidate(ctx, "view:*")
	}
}
