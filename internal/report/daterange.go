package report

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a malformed or contradictory user-supplied range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid range: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DateRange is a validated pair of calendar days.
type DateRange struct {
	// Start and End are local midnight of the first and last day.
	Start time.Time
	End   time.Time
}

// StartMs is the inclusive lower query bound.
func (r DateRange) StartMs() int64 {
	return r.Start.UnixMilli()
}

// EndMs is the inclusive upper query bound: the last millisecond of the end
// day, so a single-day range covers that whole day.
func (r DateRange) EndMs() int64 {
	return r.End.AddDate(0, 0, 1).UnixMilli() - 1
}

// ParseRange validates two YYYY-MM-DD strings in loc. Missing or
// unparseable dates and a start after the end are rejected.
func ParseRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	s, err := parseDay("start date", start, loc)
	if err != nil {
		return DateRange{}, err
	}
	e, err := parseDay("end date", end, loc)
	if err != nil {
		return DateRange{}, err
	}
	if s.After(e) {
		return DateRange{}, &ValidationError{Reason: fmt.Sprintf("start date %s is after end date %s", start, end)}
	}
	return DateRange{Start: s, End: e}, nil
}

func parseDay(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &ValidationError{Field: field, Reason: "missing (expected YYYY-MM-DD)"}
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", value)}
	}
	return t, nil
}
