package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the closed set of supported recurrence frequencies.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// RecurrencePattern is the parsed working representation of a stored
// recurrence rule. The raw string is retained only for persistence.
type RecurrencePattern struct {
	Freq       Frequency
	Interval   int
	DaysOfWeek []time.Weekday
	Until      *time.Time
	Count      *int
}

var weekdayTokens = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// ParseRecurrenceRule parses the supported rule subset, e.g.
// "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;UNTIL=2024-06-01". Supported keys are
// FREQ, INTERVAL, BYDAY (weekly only), UNTIL and COUNT; UNTIL and COUNT are
// mutually exclusive.
func ParseRecurrenceRule(raw string) (*RecurrencePattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty recurrence rule")
	}

	pattern := &RecurrencePattern{Interval: 1}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return nil, fmt.Errorf("malformed recurrence token %q", part)
		}

		switch strings.ToUpper(key) {
		case "FREQ":
			switch Frequency(strings.ToUpper(value)) {
			case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
				pattern.Freq = Frequency(strings.ToUpper(value))
			default:
				return nil, fmt.Errorf("unsupported frequency %q", value)
			}
		case "INTERVAL":
			interval, err := strconv.Atoi(value)
			if err != nil || interval < 1 {
				return nil, fmt.Errorf("invalid interval %q", value)
			}
			pattern.Interval = interval
		case "BYDAY":
			for _, token := range strings.Split(value, ",") {
				day, ok := weekdayTokens[strings.ToUpper(strings.TrimSpace(token))]
				if !ok {
					return nil, fmt.Errorf("invalid weekday %q", token)
				}
				pattern.DaysOfWeek = append(pattern.DaysOfWeek, day)
			}
		case "UNTIL":
			until, err := parseRuleDate(value)
			if err != nil {
				return nil, fmt.Errorf("invalid until date %q", value)
			}
			pattern.Until = &until
		case "COUNT":
			count, err := strconv.Atoi(value)
			if err != nil || count < 1 {
				return nil, fmt.Errorf("invalid count %q", value)
			}
			pattern.Count = &count
		default:
			return nil, fmt.Errorf("unsupported recurrence token %q", key)
		}
	}

	if pattern.Freq == "" {
		return nil, fmt.Errorf("recurrence rule missing FREQ")
	}
	if len(pattern.DaysOfWeek) > 0 && pattern.Freq != FrequencyWeekly {
		return nil, fmt.Errorf("BYDAY is only supported with FREQ=WEEKLY")
	}
	if pattern.Until != nil && pattern.Count != nil {
		return nil, fmt.Errorf("UNTIL and COUNT are mutually exclusive")
	}

	return pattern, nil
}

func parseRuleDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}
