package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Canonical formats used throughout the pipeline. Dates compare correctly
// as plain strings, which the aggregator's sort relies on.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// dateLayouts are tried in order by ParseDate. Sources write dates in all
// of these shapes; weekday prefixes are stripped before matching.
var dateLayouts = []string{
	DateLayout,
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"01/02/2006",
	"2006/01/02",
	"20060102",
}

// ParseDate normalizes a free-text date into YYYY-MM-DD. It tolerates
// surrounding whitespace and a leading weekday name ("Monday, January 12,
// 2026"). An unparsable value returns an error; callers drop the record.
func ParseDate(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", errors.New("timeutil: empty date")
	}

	// Strip a leading weekday ("Monday, ..." or "Mon ...").
	if fields := strings.Fields(v); len(fields) > 1 {
		head := strings.ToLower(strings.TrimSuffix(fields[0], ","))
		if isWeekdayName(head) {
			v = strings.TrimSpace(v[len(fields[0]):])
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("timeutil: unparsable date %q", s)
}

// clockLayouts are tried in order by ParseClock after normalization.
var clockLayouts = []string{
	ClockLayout,
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// ParseClock normalizes a free-text time of day into 24-hour HH:MM.
// Accepts "09:30", "9:30 am", "9am", "12:30 p.m.", "21:05:00".
func ParseClock(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", errors.New("timeutil: empty time")
	}

	// Normalize meridiem spellings: "a.m." -> "AM", "pm" -> "PM".
	v = strings.ReplaceAll(v, ".", "")
	v = strings.ToUpper(v)

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("timeutil: unparsable time %q", s)
}

// ValidSpan reports whether start and end are canonical HH:MM values with
// end strictly after start. Overnight sessions are not a thing in this
// domain; a record failing this check is a source error.
func ValidSpan(start, end string) bool {
	if _, err := time.Parse(ClockLayout, start); err != nil {
		return false
	}
	if _, err := time.Parse(ClockLayout, end); err != nil {
		return false
	}
	return end > start
}

// ParseDay parses a canonical YYYY-MM-DD into a UTC midnight time.Time.
func ParseDay(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// Day formats t as canonical YYYY-MM-DD.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// EachDay calls fn for every calendar date from start through end
// inclusive. Both bounds are canonical date strings; an inverted range
// visits nothing.
func EachDay(start, end string, fn func(day time.Time)) error {
	s, err := ParseDay(start)
	if err != nil {
		return err
	}
	e, err := ParseDay(end)
	if err != nil {
		return err
	}
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
	return nil
}

func isWeekdayName(s string) bool {
	switch s {
	case "sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
		"sun", "mon", "tue", "tues", "wed", "thu", "thur", "thurs", "fri", "sat":
		return true
	}
	return false
}
