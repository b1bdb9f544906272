// Package schedule is the recurrence and exception engine: it expands
// weekly ScheduleRules plus dated exceptions into concrete Sessions over a
// bounded date window. Expansion is pure and synchronous; callers may run
// it concurrently across different rule sets.
package schedule

import (
	"errors"
	"fmt"
	"time"

	appLog "icetime/internal/log"
	"icetime/internal/model"
	"icetime/internal/timeutil"
)

// DefaultHorizonDays bounds a window whose source declares no explicit end.
const DefaultHorizonDays = 90

// Window is an inclusive range of canonical YYYY-MM-DD dates.
type Window struct {
	Start string
	End   string
}

// Contains reports whether date falls inside the window. Canonical date
// strings compare correctly as plain strings.
func (w Window) Contains(date string) bool {
	return date >= w.Start && date <= w.End
}

// EffectiveWindow computes the expansion window for a source. The start is
// the later of validFrom and today (schedules never back-fill past
// occurrences); a missing validTo defaults to horizonDays from today, or
// DefaultHorizonDays when horizonDays is zero.
func EffectiveWindow(validFrom, validTo string, now time.Time, horizonDays int) Window {
	today := timeutil.Day(now)

	start := validFrom
	if start == "" || start < today {
		start = today
	}

	end := validTo
	if end == "" {
		if horizonDays <= 0 {
			horizonDays = DefaultHorizonDays
		}
		end = timeutil.Day(now.AddDate(0, 0, horizonDays))
	}

	return Window{Start: start, End: end}
}

// Result wraps the expanded sessions along with drop counters for
// observability. Drops are per-record and never abort expansion.
type Result struct {
	Sessions []model.Session

	// DroppedInvalid counts records rejected for a non-positive time span
	// or unparsable times.
	DroppedInvalid int
}

// Expand walks every calendar date in the window and emits one Session per
// rule whose weekday matches the date, subject to:
//
//   - the rule's own ValidFrom/ValidTo bounds (inclusive),
//   - cancellation dates in the rule's ExceptionSet (no session emitted;
//     cancellation also beats a time change recorded for the same date),
//   - time changes in the rule's ExceptionSet (that date's times replace
//     the rule's defaults).
//
// A rule with no ExceptionKey is exception-free and always emits. A
// cancellation date that never falls on the rule's weekday is inert.
// Overlapping rules for the same facility, day and time all emit;
// deduplication belongs to the aggregator.
func Expand(rules []model.ScheduleRule, exceptions map[string]model.ExceptionSet, w Window) (Result, error) {
	var res Result

	if w.Start == "" || w.End == "" {
		return res, errors.New("schedule: window is unbounded")
	}
	if w.End < w.Start {
		// An elapsed window is normal off-season state, not an error.
		return res, nil
	}

	err := timeutil.EachDay(w.Start, w.End, func(d time.Time) {
		date := timeutil.Day(d)
		weekday := int(d.Weekday()) // Sunday = 0

		for _, rule := range rules {
			if rule.DayOfWeek != weekday {
				continue
			}
			if rule.ValidFrom != "" && date < rule.ValidFrom {
				continue
			}
			if rule.ValidTo != "" && date > rule.ValidTo {
				continue
			}

			start, end := rule.StartTime, rule.EndTime
			if rule.ExceptionKey != "" {
				ex, ok := exceptions[rule.ExceptionKey]
				if ok {
					if ex.Cancelled(date) {
						continue
					}
					if tc, changed := ex.TimeChanges[date]; changed {
						start, end = tc.Start, tc.End
					}
				}
			}

			if !timeutil.ValidSpan(start, end) {
				res.DroppedInvalid++
				appLog.Debug("schedule: dropped rule instance with invalid span",
					"facility", rule.FacilityRef, "date", date, "start", start, "end", end)
				continue
			}

			res.Sessions = append(res.Sessions, model.Session{
				Facility:     rule.FacilityRef,
				Date:         date,
				StartTime:    start,
				EndTime:      end,
				Type:         rule.Type,
				ActivityName: rule.ActivityName,
				AgeRange:     rule.AgeRange,
			})
		}
	})
	if err != nil {
		return res, fmt.Errorf("schedule: %w", err)
	}
	return res, nil
}

// AppendSpecials converts one-off special events falling inside the window
// into Sessions and appends them to res. Specials bypass weekly recurrence
// entirely; they are still subject to the window and the time-span
// invariant.
func AppendSpecials(res Result, specials []model.SpecialEvent, w Window) Result {
	for _, sp := range specials {
		if !w.Contains(sp.Date) {
			continue
		}
		if !timeutil.ValidSpan(sp.StartTime, sp.EndTime) {
			res.DroppedInvalid++
			appLog.Debug("schedule: dropped special event with invalid span",
				"facility", sp.FacilityRef, "date", sp.Date)
			continue
		}
		res.Sessions = append(res.Sessions, model.Session{
			Facility:     sp.FacilityRef,
			Date:         sp.Date,
			StartTime:    sp.StartTime,
			EndTime:      sp.EndTime,
			Type:         sp.Type,
			ActivityName: sp.ActivityName,
			AgeRange:     sp.AgeRange,
			Description:  sp.Description,
		})
	}
	return res
}
