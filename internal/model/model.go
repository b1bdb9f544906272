package model

// ActivityType is the closed taxonomy of session types. Free-text activity
// names from the sources are mapped onto these values by internal/classify;
// the original text is always preserved on Session.ActivityName.
type ActivityType string

const (
	// Skating taxonomy.
	Skating        ActivityType = "skating"
	PublicSkating  ActivityType = "public-skating"
	FamilySkate    ActivityType = "family-skate"
	FigureSkating  ActivityType = "figure-skating"
	SkatingLessons ActivityType = "skating-lessons"
	Practice       ActivityType = "practice"
	Hockey         ActivityType = "hockey"
	DropInHockey   ActivityType = "drop-in-hockey"
	FamilyHockey   ActivityType = "family-hockey"
	ParaHockey     ActivityType = "para-hockey"

	// Swimming taxonomy.
	PublicSwim  ActivityType = "public-swim"
	LapSwim     ActivityType = "lap-swim"
	FamilySwim  ActivityType = "family-swim"
	AdultSwim   ActivityType = "adult-swim"
	Aquafit     ActivityType = "aquafit"
	SwimLessons ActivityType = "swim-lessons"
)

// Session is one concrete, dated, timed occurrence of a bookable activity
// at a facility. Sessions are value objects: once the aggregator has
// produced them they are never mutated, and the JSON field names below are
// a compatibility contract for downstream consumers.
type Session struct {
	Facility string  `json:"facility"`
	City     string  `json:"city"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`

	// Date is a canonical YYYY-MM-DD string; StartTime/EndTime are 24-hour
	// HH:MM. EndTime must be after StartTime within the same day; a record
	// violating that is a source error and never emitted.
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	Type         ActivityType `json:"type"`
	ActivityName string       `json:"activityName"`

	AgeRange    string `json:"ageRange,omitempty"`
	Description string `json:"description,omitempty"`

	ActivityURL string `json:"activityUrl,omitempty"`
	ScheduleURL string `json:"scheduleUrl,omitempty"`
	FacilityURL string `json:"facilityUrl,omitempty"`

	// EventItemID is an opaque external id, used for source-level dedup
	// when the source provides one.
	EventItemID string `json:"eventItemId,omitempty"`
}

// Facility is reference data for one physical venue. Facilities are loaded
// once from configuration and never mutated at runtime.
type Facility struct {
	Name    string  `yaml:"name" json:"name"`
	City    string  `yaml:"city" json:"city"`
	Address string  `yaml:"address" json:"address"`
	Lat     float64 `yaml:"lat" json:"lat"`
	Lng     float64 `yaml:"lng" json:"lng"`

	// Aliases are lower-cased substrings that identify this facility in
	// free text from a source. Declaration order matters: the resolver
	// takes the first alias that matches, not the longest.
	Aliases []string `yaml:"aliases" json:"aliases"`

	ScheduleURL string `yaml:"schedule_url,omitempty" json:"scheduleUrl,omitempty"`
	FacilityURL string `yaml:"facility_url,omitempty" json:"facilityUrl,omitempty"`
}

// ScheduleRule is a weekly recurrence pattern for a pattern-based source:
// one activity on one weekday at fixed times, bounded by an optional
// validity window and optionally subject to dated exceptions.
type ScheduleRule struct {
	// FacilityRef names the facility, either a canonical directory name or
	// free text the resolver can match.
	FacilityRef string `yaml:"facility"`

	// DayOfWeek is 0–6 with Sunday = 0, matching time.Weekday.
	DayOfWeek int `yaml:"day_of_week"`

	StartTime string `yaml:"start"`
	EndTime   string `yaml:"end"`

	ActivityName string       `yaml:"activity"`
	Type         ActivityType `yaml:"type,omitempty"`
	AgeRange     string       `yaml:"age_range,omitempty"`

	// ValidFrom/ValidTo bound the dates the rule applies to (inclusive,
	// YYYY-MM-DD). Empty means unbounded on that side.
	ValidFrom string `yaml:"valid_from,omitempty"`
	ValidTo   string `yaml:"valid_to,omitempty"`

	// ExceptionKey links the rule to an ExceptionSet. Empty means the rule
	// is exception-free and always emits.
	ExceptionKey string `yaml:"exception_key,omitempty"`
}

// TimeChange replaces a rule's default times on one specific date.
type TimeChange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ExceptionSet holds dated overrides applied against schedule rules during
// expansion. A date present in both CancelledDates and TimeChanges is
// contradictory; cancellation takes precedence and the session is dropped.
type ExceptionSet struct {
	CancelledDates []string              `yaml:"cancelled,omitempty"`
	TimeChanges    map[string]TimeChange `yaml:"time_changes,omitempty"`
}

// Cancelled reports whether date is in the cancelled set.
func (e ExceptionSet) Cancelled(date string) bool {
	for _, d := range e.CancelledDates {
		if d == date {
			return true
		}
	}
	return false
}

// SpecialEvent is a one-off Session-shaped record tied to a single literal
// date (holiday schedules and the like). It bypasses weekly recurrence
// entirely and is only subject to the expansion window.
type SpecialEvent struct {
	FacilityRef  string       `yaml:"facility"`
	Date         string       `yaml:"date"`
	StartTime    string       `yaml:"start"`
	EndTime      string       `yaml:"end"`
	ActivityName string       `yaml:"activity"`
	Type         ActivityType `yaml:"type,omitempty"`
	AgeRange     string       `yaml:"age_range,omitempty"`
	Description  string       `yaml:"description,omitempty"`
}

// RawEventRecord is a non-recurring event as emitted by API- or DOM-backed
// source adapters, before date/time normalization. Either the *Text fields
// or the already-canonical fields may be populated; the pipeline normalizes
// whichever is present and drops records that parse to nothing.
type RawEventRecord struct {
	FacilityText string // free text, resolved via the directory
	FacilityRef  string // already-canonical facility name, if known

	DateText string // free text, e.g. "Monday, January 12, 2026"
	ISODate  string // canonical YYYY-MM-DD, if the source is already clean

	StartTimeText string
	EndTimeText   string
	StartTime     string // canonical HH:MM
	EndTime       string

	ActivityName string
	AgeRange     string
	Description  string

	// Openings is a remaining-capacity hint some APIs expose. It is carried
	// through to Description but never used for filtering.
	Openings int

	EventItemID string
	ActivityURL string
}
