package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pulseplan/pulseplan-api/internal/dto"
	"github.com/pulseplan/pulseplan-api/internal/models"
	appErrors "github.com/pulseplan/pulseplan-api/pkg/errors"
)

type viewEventRepository interface {
	ListForWindow(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.CalendarEvent, error)
}

type viewExceptionRepository interface {
	ListByParents(ctx context.Context, parentIDs []int64) (map[int64][]models.EventException, error)
}

type viewTaskResolver interface {
	Lookup(ctx context.Context, id int64) *models.TaskSummary
	Deadlines(ctx context.Context, from, to time.Time) []models.TaskDeadline
}

const dateLayout = "2006-01-02"

// ViewService assembles day, week and month grids: it computes the window,
// pulls raw events, expands recurring series, resolves task links and buckets
// occurrences into day cells. The optional deadline overlay is fetched
// concurrently and dropped on failure rather than failing the view.
type ViewService struct {
	events     viewEventRepository
	exceptions viewExceptionRepository
	tasks      viewTaskResolver
	expander   *RecurrenceExpander
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewViewService constructs the view builder.
func NewViewService(events viewEventRepository, exceptions viewExceptionRepository, tasks viewTaskResolver, expander *RecurrenceExpander, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{
		events:     events,
		exceptions: exceptions,
		tasks:      tasks,
		expander:   expander,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// DayView returns the single-day window around date. A single-day request
// always reports is_current_month=true.
func (s *ViewService) DayView(ctx context.Context, date time.Time, includeTasks bool) (*dto.DayViewResponse, error) {
	date = startOfDayUTC(date)
	buckets, deadlines, err := s.assemble(ctx, date, date, includeTasks)
	if err != nil {
		return nil, err
	}
	return &dto.DayViewResponse{
		Day:           s.buildDay(date, buckets, true),
		TaskDeadlines: deadlines,
	}, nil
}

// WeekView returns the Monday-anchored week containing date: exactly seven
// day cells from the Monday on or before date.
func (s *ViewService) WeekView(ctx context.Context, date time.Time, includeTasks bool) (*dto.WeekViewResponse, error) {
	weekStart := mondayOnOrBefore(date)
	weekEnd := weekStart.AddDate(0, 0, 6)
	buckets, deadlines, err := s.assemble(ctx, weekStart, weekEnd, includeTasks)
	if err != nil {
		return nil, err
	}
	return &dto.WeekViewResponse{
		Week:          s.buildWeek(weekStart, buckets, nil),
		TaskDeadlines: deadlines,
	}, nil
}

// MonthView returns the full grid for a month, extended backward to the
// Monday on or before the first day and forward to the Sunday on or after
// the last, so every row holds seven cells.
func (s *ViewService) MonthView(ctx context.Context, year, month int, includeTasks bool) (*dto.MonthViewResponse, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}

	cacheKey := fmt.Sprintf("view:month:%04d-%02d:tasks=%t", year, month, includeTasks)
	if s.cache.Enabled() {
		var cached dto.MonthViewResponse
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	gridStart := mondayOnOrBefore(first)
	gridEnd := mondayOnOrBefore(last).AddDate(0, 0, 6)

	buckets, deadlines, err := s.assemble(ctx, gridStart, gridEnd, includeTasks)
	if err != nil {
		return nil, err
	}

	requested := time.Month(month)
	var weeks []dto.CalendarWeek
	for weekStart := gridStart; !weekStart.After(gridEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		weeks = append(weeks, s.buildWeek(weekStart, buckets, &requested))
	}

	resp := &dto.MonthViewResponse{
		Month:         dto.CalendarMonth{Year: year, Month: month, Weeks: weeks},
		TaskDeadlines: deadlines,
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	}
	return resp, nil
}

// assemble fans out the raw event fetch and the optional deadline fetch,
// joining both before the grid is built. A deadline failure degrades to an
// omitted overlay inside the resolver.
func (s *ViewService) assemble(ctx context.Context, from, to time.Time, includeTasks bool) (map[string][]dto.EventResponse, []models.TaskDeadline, error) {
	var (
		deadlines []models.TaskDeadline
		wg        sync.WaitGroup
	)
	if includeTasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadlines = s.tasks.Deadlines(ctx, from, to)
		}()
	}

	buckets, err := s.collectOccurrences(ctx, from, to, includeTasks)
	wg.Wait()
	if err != nil {
		return nil, nil, err
	}
	return buckets, deadlines, nil
}

func (s *ViewService) collectOccurrences(ctx context.Context, from, to time.Time, includeTasks bool) (map[string][]dto.EventResponse, error) {
	raw, err := s.events.ListForWindow(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	var parentIDs []int64
	for i := range raw {
		if raw[i].IsRecurring() {
			parentIDs = append(parentIDs, raw[i].ID)
		}
	}
	excByParent, err := s.exceptions.ListByParents(ctx, parentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event exceptions")
	}

	overrideIDs := make([]int64, 0)
	overrideSet := make(map[int64]struct{})
	for _, exceptions := range excByParent {
		for _, exc := range exceptions {
			if exc.ModifiedEventID != nil {
				overrideIDs = append(overrideIDs, *exc.ModifiedEventID)
				overrideSet[*exc.ModifiedEventID] = struct{}{}
			}
		}
	}
	overrides, err := s.events.GetByIDs(ctx, overrideIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override events")
	}

	buckets := make(map[string][]dto.EventResponse)
	add := func(occ models.CalendarEvent, recurring bool) {
		resp := dto.EventResponse{CalendarEvent: occ, IsRecurring: recurring}
		if includeTasks && occ.TaskID != nil {
			resp.Task = s.tasks.Lookup(ctx, *occ.TaskID)
		}
		key := occ.StartDatetime.UTC().Format(dateLayout)
		buckets[key] = append(buckets[key], resp)
	}

	for i := range raw {
		event := raw[i]
		if event.IsRecurring() {
			for _, occ := range s.expander.Expand(event, excByParent[event.ID], overrides, from, to) {
				add(occ, true)
			}
			continue
		}
		// Override rows surface through their series occurrence, not on
		// their own.
		if _, isOverride := overrideSet[event.ID]; isOverride {
			continue
		}
		add(event, false)
	}

	for key := range buckets {
		day := buckets[key]
		sort.SliceStable(day, func(a, b int) bool {
			if day[a].StartDatetime.Equal(day[b].StartDatetime) {
				return day[a].ID < day[b].ID
			}
			return day[a].StartDatetime.Before(day[b].StartDatetime)
		})
	}
	return buckets, nil
}

// buildWeek fills seven cells starting at weekStart. With a nil month every
// cell reports is_current_month=true; with a month set the flag reflects the
// cell's actual month.
func (s *ViewService) buildWeek(weekStart time.Time, buckets map[string][]dto.EventResponse, month *time.Month) dto.CalendarWeek {
	days := make([]dto.CalendarDay, 0, 7)
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i)
		inMonth := month == nil || date.Month() == *month
		days = append(days, s.buildDay(date, buckets, inMonth))
	}
	return dto.CalendarWeek{
		WeekStart: weekStart.Format(dateLayout),
		WeekEnd:   weekStart.AddDate(0, 0, 6).Format(dateLayout),
		Days:      days,
	}
}

func (s *ViewService) buildDay(date time.Time, buckets map[string][]dto.EventResponse, isCurrentMonth bool) dto.CalendarDay {
	key := date.Format(dateLayout)
	events := buckets[key]
	if events == nil {
		events = []dto.EventResponse{}
	}
	return dto.CalendarDay{
		Date:           key,
		Events:         events,
		IsToday:        key == s.now().UTC().Format(dateLayout),
		IsCurrentMonth: isCurrentMonth,
	}
}

// mondayOnOrBefore maps any date to the Monday starting its week: Sunday
// steps six days back, every other weekday steps weekday-1 days back.
func mondayOnOrBefore(t time.Time) time.Time {
	t = startOfDayUTC(t)
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return t.AddDate(0, 0, -offset)
}
