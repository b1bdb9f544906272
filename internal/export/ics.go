// Package export serializes the aggregated sessions back out as an iCal
// feed, so the combined schedule is subscribable from any calendar client.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"icetime/internal/model"
	"icetime/internal/timeutil"
)

// BuildCalendar renders one VEVENT per session. Times are emitted in the
// process-local timezone, matching how the sources publish them.
func BuildCalendar(sessions []model.Session) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//icetime//schedule aggregator//EN")

	for _, s := range sessions {
		start, err := sessionTime(s.Date, s.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := sessionTime(s.Date, s.EndTime)
		if err != nil {
			return nil, err
		}

		ev := cal.AddEvent(sessionUID(s))
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(s.ActivityName)
		loc := s.Facility
		if s.Address != "" {
			loc += ", " + s.Address
		}
		ev.SetLocation(loc)
		if s.Description != "" {
			ev.SetDescription(s.Description)
		}
		if s.ActivityURL != "" {
			ev.SetURL(s.ActivityURL)
		}
	}
	return cal, nil
}

// WriteICS serializes the sessions to path.
func WriteICS(path string, sessions []model.Session) error {
	cal, err := BuildCalendar(sessions)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return os.WriteFile(path, []byte(cal.Serialize()), 0o644)
}

// sessionUID is stable across runs for the same real-world session.
func sessionUID(s model.Session) string {
	slug := strings.ToLower(strings.ReplaceAll(s.Facility, " ", "-"))
	return fmt.Sprintf("%s-%s-%s@icetime", slug, s.Date, strings.ReplaceAll(s.StartTime, ":", ""))
}

func sessionTime(date, clock string) (time.Time, error) {
	return time.ParseInLocation(timeutil.DateLayout+" "+timeutil.ClockLayout, date+" "+clock, time.Local)
}
