package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	"github.com/pulseplan/pulseplan-api/internal/models"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
)

type conflictRepository interface {
	GetByID(ctx context.Context, id int64) (*models.CalendarEvent, error)
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID *int64) ([]models.CalendarEvent, error)
}

// ConflictService finds stored events overlapping a proposed interval.
// Recurring series are only seen through their stored parent row; occurrences
// are not expanded here.
type ConflictService struct {
	repo      conflictRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(repo conflictRepository, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{repo: repo, validator: validate, logger: logger}
}

// Check reports every non-excluded event whose interval overlaps the
// proposal using the half-open test, with exact overlap accounting. A
// missing end makes the proposal an instantaneous point.
func (s *ConflictService) Check(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	start := req.StartDatetime
	end := start
	if req.EndDatetime != nil {
		end = *req.EndDatetime
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "End datetime must be after start datetime")
	}
	if req.ExcludeEventID != nil {
		if _, err := s.repo.GetByID(ctx, *req.ExcludeEventID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "excluded event not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load excluded event")
		}
	}

	events, err := s.repo.FindOverlapping(ctx, start, end, req.ExcludeEventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
	}

	conflicts := make([]dto.Conflict, 0, len(events))
	for i := range events {
		event := events[i]
		overlapStart := maxTime(start, event.StartDatetime)
		overlapEnd := minTime(end, event.EffectiveEnd())
		minutes := int(math.Round(overlapEnd.Sub(overlapStart).Minutes()))
		if minutes < 0 {
			minutes = 0
		}
		conflicts = append(conflicts, dto.Conflict{
			Event:          dto.EventResponse{CalendarEvent: event, IsRecurring: event.IsRecurring()},
			OverlapStart:   overlapStart,
			OverlapEnd:     overlapEnd,
			OverlapMinutes: minutes,
		})
	}

	return &dto.ConflictCheckResponse{HasConflicts: len(conflicts) > 0, Conflicts: conflicts}, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
