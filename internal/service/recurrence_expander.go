package service

import (
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/pulseplan/pulseplan-api/internal/models"
)

var rruleFrequencies = map[models.Frequency]rrule.Frequency{
	models.FrequencyDaily:   rrule.DAILY,
	models.FrequencyWeekly:  rrule.WEEKLY,
	models.FrequencyMonthly: rrule.MONTHLY,
	models.FrequencyYearly:  rrule.YEARLY,
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// RecurrenceExpander materializes recurring events into concrete occurrences
// inside a date window, applying per-occurrence exceptions. Stepping uses
// calendar-unit arithmetic, so month lengths and DST shifts are handled.
type RecurrenceExpander struct {
	maxOccurrences int
	logger         *zap.Logger
}

// NewRecurrenceExpander constructs the expander. maxOccurrences caps how
// many occurrences a single series can contribute to one window.
func NewRecurrenceExpander(maxOccurrences int, logger *zap.Logger) *RecurrenceExpander {
	if maxOccurrences <= 0 {
		maxOccurrences = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurrenceExpander{maxOccurrences: maxOccurrences, logger: logger}
}

// Expand returns the occurrences of a recurring parent whose interval
// overlaps the [from, to] calendar-date window. Occurrences carry the
// parent's fields shifted onto their date and keep the parent's id as the
// series identity; a modified exception substitutes the override event's
// fields under that same identity.
func (x *RecurrenceExpander) Expand(parent models.CalendarEvent, exceptions []models.EventException, overrides map[int64]*models.CalendarEvent, from, to time.Time) []models.CalendarEvent {
	windowStart := startOfDayUTC(from)
	windowEnd := startOfDayUTC(to).AddDate(0, 0, 1)

	if !parent.IsRecurring() {
		return nil
	}
	pattern, err := models.ParseRecurrenceRule(*parent.RecurrenceRule)
	if err != nil {
		// Rules are validated on write, so this only fires for legacy rows.
		x.logger.Warn("unparseable stored recurrence rule",
			zap.Int64("event_id", parent.ID), zap.Error(err))
		if overlapsWindow(parent.StartDatetime, parent.EffectiveEnd(), windowStart, windowEnd) {
			return []models.CalendarEvent{parent}
		}
		return nil
	}

	opt := rrule.ROption{
		Freq:     rruleFrequencies[pattern.Freq],
		Interval: pattern.Interval,
		Dtstart:  parent.StartDatetime.UTC(),
	}
	for _, day := range pattern.DaysOfWeek {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[day])
	}
	if pattern.Count != nil {
		opt.Count = *pattern.Count
	}
	if pattern.Until != nil {
		until := *pattern.Until
		opt.Until = time.Date(until.Year(), until.Month(), until.Day(), 23, 59, 59, 0, time.UTC)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		x.logger.Warn("recurrence rule rejected by iterator",
			zap.Int64("event_id", parent.ID), zap.Error(err))
		return nil
	}

	duration := parent.Duration()
	excByDate := make(map[string]models.EventException, len(exceptions))
	for _, exc := range exceptions {
		excByDate[exc.ExceptionDate.Format("2006-01-02")] = exc
	}

	// Reach back by the event duration so an occurrence spanning into the
	// window from an earlier date is still picked up.
	searchStart := windowStart.Add(-duration)
	candidates := rule.Between(searchStart, windowEnd.Add(-time.Second), true)

	var out []models.CalendarEvent
	for _, start := range candidates {
		if len(out) >= x.maxOccurrences {
			break
		}
		occEnd := start.Add(duration)
		if occEnd.Before(windowStart) {
			continue
		}

		if exc, ok := excByDate[start.UTC().Format("2006-01-02")]; ok {
			if exc.Cancelled {
				continue
			}
			if exc.ModifiedEventID != nil {
				if override := overrides[*exc.ModifiedEventID]; override != nil {
					occ := *override
					occ.ID = parent.ID
					occ.RecurrenceRule = parent.RecurrenceRule
					out = append(out, occ)
					continue
				}
				// Dangling override reference: fall back to the plain occurrence.
			}
		}

		occ := parent
		occ.StartDatetime = start
		if parent.EndDatetime != nil {
			end := start.Add(duration)
			occ.EndDatetime = &end
		}
		out = append(out, occ)
	}
	return out
}

func startOfDayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func overlapsWindow(start, end, windowStart, windowEnd time.Time) bool {
	return start.Before(windowEnd) && !end.Before(windowStart)
}
