package compute

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"posync/internal/domain"
)

// MaxRangeDays is the longest accepted date range. A range of exactly this
// many days is valid.
const MaxRangeDays = 365

var (
	// ErrInvalidFormat is returned when a date bound cannot be parsed.
	ErrInvalidFormat = errors.New("invalid date format")
	// ErrInvertedRange is returned when start is after end.
	ErrInvertedRange = errors.New("start date is after end date")
	// ErrRangeTooLarge is returned when the range exceeds MaxRangeDays.
	ErrRangeTooLarge = errors.New("date range exceeds 365 days")
)

// dateLayouts are tried in order when parsing a date bound.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// AnalyticsPeriods derives the named reporting windows from ref, in ref's
// location. Today spans midnight to the next midnight, Yesterday the day
// before it; ThisWeek starts at the most recent Sunday midnight, ThisMonth
// at the first of the month, ThisYear at January 1, all ending at ref.
func AnalyticsPeriods(ref time.Time) domain.AnalyticsPeriods {
	loc := ref.Location()
	y, m, d := ref.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// time.Date normalizes day overflow and follows DST transitions, so day
	// arithmetic goes through it rather than adding 24h.
	tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	yesterday := time.Date(y, m, d-1, 0, 0, 0, 0, loc)
	sunday := time.Date(y, m, d-int(ref.Weekday()), 0, 0, 0, 0, loc)

	return domain.AnalyticsPeriods{
		Today:     domain.AnalyticsPeriod{Start: midnight, End: tomorrow},
		Yesterday: domain.AnalyticsPeriod{Start: yesterday, End: midnight},
		ThisWeek:  domain.AnalyticsPeriod{Start: sunday, End: ref},
		ThisMonth: domain.AnalyticsPeriod{Start: time.Date(y, m, 1, 0, 0, 0, 0, loc), End: ref},
		ThisYear:  domain.AnalyticsPeriod{Start: time.Date(y, time.January, 1, 0, 0, 0, 0, loc), End: ref},
	}
}

// ParseDate parses a date bound in RFC 3339 or YYYY-MM-DD form. Bounds
// without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// CheckDateRange returns nil if [start, end] is a valid reporting range, or
// an error wrapping ErrInvalidFormat, ErrInvertedRange, or ErrRangeTooLarge.
func CheckDateRange(start, end string) error {
	s, err := ParseDate(start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if s.After(e) {
		return ErrInvertedRange
	}
	if e.Sub(s) > MaxRangeDays*24*time.Hour {
		return ErrRangeTooLarge
	}
	return nil
}

// ValidateDateRange is CheckDateRange reported as a Validation.
func ValidateDateRange(start, end string) domain.Validation {
	if err := CheckDateRange(start, end); err != nil {
		return domain.Validation{IsValid: false, Errors: []string{err.Error()}}
	}
	return domain.Validation{IsValid: true, Errors: []string{}}
}
