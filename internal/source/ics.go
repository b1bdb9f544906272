package source

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"icetime/internal/config"
	"icetime/internal/fetch"
	appLog "icetime/internal/log"
	"icetime/internal/model"
	"icetime/internal/schedule"
	"icetime/internal/timeutil"
)

// maxOccurrencesPerEvent caps RRULE expansion so a malformed feed cannot
// blow up a run.
const maxOccurrencesPerEvent = 1000

// icsAdapter handles municipalities that publish their schedule as an
// iCal feed. VEVENTs are expanded within the source window, RRULEs and
// EXDATEs included, and each occurrence becomes one RawEventRecord with
// canonical date/time fields already set.
type icsAdapter struct {
	src     config.SourceConfig
	fetcher *fetch.Fetcher
}

func (a *icsAdapter) ID() string { return a.src.ID }

func (a *icsAdapter) Fetch(ctx context.Context, w schedule.Window) (Payload, error) {
	body, err := a.fetcher.Get(ctx, a.src.URL)
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", a.src.ID, err)
	}
	records, err := decodeICS(a.src.ID, body, w)
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", a.src.ID, err)
	}
	return Payload{Records: records, Specials: a.src.Specials}, nil
}

func decodeICS(sourceID string, body []byte, w schedule.Window) ([]model.RawEventRecord, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	rangeStart, err := timeutil.ParseDay(w.Start)
	if err != nil {
		return nil, err
	}
	rangeEnd, err := timeutil.ParseDay(w.End)
	if err != nil {
		return nil, err
	}
	// Inclusive end of day.
	rangeEnd = rangeEnd.Add(24*time.Hour - time.Second)

	var records []model.RawEventRecord
	for _, ve := range cal.Events() {
		evRecords, perr := expandVEvent(ve, rangeStart, rangeEnd)
		if perr != nil {
			// Skip the event, keep the feed.
			appLog.Error("ics vevent skipped", perr, "source", sourceID)
			continue
		}
		records = append(records, evRecords...)
	}
	return records, nil
}

func expandVEvent(ve *ical.VEvent, rangeStart, rangeEnd time.Time) ([]model.RawEventRecord, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("ics: missing DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		return nil, fmt.Errorf("ics: missing or inverted DTEND")
	}
	duration := end.Sub(start)

	summary := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}
	location := ""
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		location = p.Value
	}
	uid := ""
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		uid = p.Value
	}
	description := ""
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		description = p.Value
	}

	var occStarts []time.Time
	recurring := false
	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil && rruleProp.Value != "" {
		recurring = true
		r, rerr := rrule.StrToRRule(rruleProp.Value)
		if rerr != nil {
			return nil, fmt.Errorf("ics: bad RRULE %q: %w", rruleProp.Value, rerr)
		}
		r.DTStart(start)

		var set rrule.Set
		set.RRule(r)
		for _, exProp := range ve.GetProperties(ical.ComponentPropertyExdate) {
			if t, perr := parseICSTime(exProp.Value, start.Location()); perr == nil {
				set.ExDate(t)
			}
		}

		occStarts = set.Between(rangeStart.In(start.Location()), rangeEnd.In(start.Location()), true)
		if len(occStarts) > maxOccurrencesPerEvent {
			occStarts = occStarts[:maxOccurrencesPerEvent]
			appLog.Error("ics: truncated occurrences for event", fmt.Errorf("cap reached"),
				"uid", uid, "cap", maxOccurrencesPerEvent)
		}
	} else {
		if start.Before(rangeStart) || start.After(rangeEnd) {
			return nil, nil
		}
		occStarts = []time.Time{start}
	}

	records := make([]model.RawEventRecord, 0, len(occStarts))
	for _, occStart := range occStarts {
		occEnd := occStart.Add(duration)
		// Per-instance id stays stable as the window rolls forward.
		itemID := uid
		if recurring {
			itemID = uid + "/" + occStart.Format("20060102T1504")
		}
		records = append(records, model.RawEventRecord{
			FacilityText: location,
			ISODate:      timeutil.Day(occStart),
			StartTime:    occStart.Format(timeutil.ClockLayout),
			EndTime:      occEnd.Format(timeutil.ClockLayout),
			ActivityName: summary,
			Description:  description,
			EventItemID:  itemID,
		})
	}
	return records, nil
}

// parseICSTime parses the basic EXDATE date/date-time forms.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case len(v) == 16 && v[15] == 'Z':
		return time.Parse("20060102T150405Z", v)
	case len(v) == 15:
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
