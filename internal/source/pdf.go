package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"icetime/internal/config"
	appLog "icetime/internal/log"
	"icetime/internal/model"
	"icetime/internal/schedule"
	"icetime/internal/timeutil"
)

// maxColumnDistance is the safety valve for the nearest-column heuristic:
// a cell whose nearest day-column header is farther than this (in the
// extractor's horizontal units) is rejected rather than silently
// attributed to the wrong day.
const maxColumnDistance = 40.0

// gridExtract is the JSON a PDF text extractor emits for one weekly
// schedule grid: day-name column headers with horizontal offsets, and
// positioned time-slot cells. PDF-to-text extraction itself runs outside
// this process.
type gridExtract struct {
	Facility string       `json:"facility"`
	Columns  []gridColumn `json:"columns"`
	Cells    []gridCell   `json:"cells"`
}

type gridColumn struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
}

type gridCell struct {
	// Text is "9:00 AM - 10:30 AM Public Skating" or similar.
	Text string  `json:"text"`
	X    float64 `json:"x"`
}

// pdfAdapter handles municipalities that publish a weekly PDF grid with
// day-of-week columns. The grid is inherently a weekly pattern, so the
// adapter emits ScheduleRules and lets the engine expand them; the lossy
// part, column assignment by horizontal offset, lives here with its
// rejection threshold.
type pdfAdapter struct {
	src config.SourceConfig
}

func (a *pdfAdapter) ID() string { return a.src.ID }

func (a *pdfAdapter) Fetch(_ context.Context, _ schedule.Window) (Payload, error) {
	data, err := os.ReadFile(a.src.TextPath)
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", a.src.ID, err)
	}

	var extract gridExtract
	if err := json.Unmarshal(data, &extract); err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", a.src.ID, err)
	}

	rules, dropped := gridToRules(a.src.ID, extract, a.src)
	if dropped > 0 {
		appLog.Info("pdf grid cells dropped", "source", a.src.ID, "dropped", dropped)
	}
	return Payload{
		Rules:      rules,
		Exceptions: a.src.Exceptions,
		Specials:   a.src.Specials,
	}, nil
}

func gridToRules(sourceID string, extract gridExtract, src config.SourceConfig) (rules []model.ScheduleRule, dropped int) {
	facility := extract.Facility
	if facility == "" {
		facility = src.DefaultFacility
	}

	for _, cell := range extract.Cells {
		day, ok := assignColumn(cell.X, extract.Columns)
		if !ok {
			dropped++
			appLog.Debug("pdf grid cell rejected: no column within threshold",
				"source", sourceID, "text", cell.Text, "x", cell.X)
			continue
		}

		start, end, activity, ok := parseGridCell(cell.Text)
		if !ok {
			dropped++
			appLog.Debug("pdf grid cell rejected: unparsable text",
				"source", sourceID, "text", cell.Text)
			continue
		}

		rules = append(rules, model.ScheduleRule{
			FacilityRef:  facility,
			DayOfWeek:    day,
			StartTime:    start,
			EndTime:      end,
			ActivityName: activity,
			ValidFrom:    src.ValidFrom,
			ValidTo:      src.ValidTo,
		})
	}
	return rules, dropped
}

// assignColumn picks the day column whose header is horizontally nearest
// to x. If the nearest distance exceeds maxColumnDistance the assignment
// is rejected: guessing would misattribute the slot to the wrong day.
func assignColumn(x float64, columns []gridColumn) (dayOfWeek int, ok bool) {
	best := -1
	bestDist := 0.0
	for i, col := range columns {
		d := x - col.X
		if d < 0 {
			d = -d
		}
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 || bestDist > maxColumnDistance {
		return 0, false
	}
	day, ok := weekdayFromLabel(columns[best].Label)
	if !ok {
		return 0, false
	}
	return day, true
}

func weekdayFromLabel(label string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "sunday", "sun":
		return 0, true
	case "monday", "mon":
		return 1, true
	case "tuesday", "tue", "tues":
		return 2, true
	case "wednesday", "wed":
		return 3, true
	case "thursday", "thu", "thur", "thurs":
		return 4, true
	case "friday", "fri":
		return 5, true
	case "saturday", "sat":
		return 6, true
	}
	return 0, false
}

// parseGridCell splits "9:00 AM - 10:30 AM Public Skating" into canonical
// times plus the activity text.
func parseGridCell(text string) (start, end, activity string, ok bool) {
	left, right, found := strings.Cut(text, "-")
	if !found {
		return "", "", "", false
	}

	start, err := timeutil.ParseClock(left)
	if err != nil {
		return "", "", "", false
	}

	end, activity, ok = leadingClock(strings.TrimSpace(right))
	if !ok {
		return "", "", "", false
	}
	return start, end, strings.TrimSpace(activity), true
}

// leadingClock parses the longest 1–2 field time prefix of s ("10:30 AM
// Public Skating" yields "22:30"-style canonical time plus the rest).
func leadingClock(s string) (clock, rest string, ok bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", "", false
	}

	// Prefer the two-field form ("10:30 AM") over the bare one ("10:30")
	// so the meridiem is not swallowed into the activity name.
	if len(fields) >= 2 {
		if c, err := timeutil.ParseClock(fields[0] + " " + fields[1]); err == nil {
			return c, strings.Join(fields[2:], " "), true
		}
	}
	if c, err := timeutil.ParseClock(fields[0]); err == nil {
		return c, strings.Join(fields[1:], " "), true
	}
	return "", "", false
}
