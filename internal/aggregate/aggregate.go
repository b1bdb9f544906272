// Package aggregate merges session batches from all sources into the final
// collection: stable first-wins deduplication under a per-batch key
// function, then a stable ascending sort by (date, start time).
package aggregate

import (
	"sort"
	"strings"

	"icetime/internal/model"
)

// KeyFunc derives the dedup key for a session. Two sessions with equal
// keys describe the same real-world session; the first one encountered in
// batch submission order is kept.
type KeyFunc func(s model.Session) string

// The field separator cannot appear in canonical dates/times and is
// unlikely in facility names.
const keySep = "\x1f"

// FacilityEventKey keys on (facility, external event id) for sources that
// publish a stable id. Sessions without an id fall back to
// FacilityDateStartKey so they still dedup sanely.
func FacilityEventKey(s model.Session) string {
	if s.EventItemID == "" {
		return FacilityDateStartKey(s)
	}
	return strings.Join([]string{s.Facility, s.EventItemID}, keySep)
}

// FacilityDateStartKey keys on (facility, date, start time), the default
// for sources without stable external ids.
func FacilityDateStartKey(s model.Session) string {
	return strings.Join([]string{s.Facility, s.Date, s.StartTime}, keySep)
}

// DateStartActivityKey keys on (date, start time, activity name), for
// facilities that run multiple simultaneous activities in one slot (two
// rink surfaces, for example).
func DateStartActivityKey(s model.Session) string {
	return strings.Join([]string{s.Date, s.StartTime, s.ActivityName}, keySep)
}

// Batch is one source's contribution plus the key function appropriate to
// that source. A nil Key means FacilityDateStartKey.
type Batch struct {
	Sessions []model.Session
	Key      KeyFunc
}

// Aggregate folds all batches in submission order, discarding any session
// whose key was already seen, then sorts the survivors ascending by
// (Date, StartTime). The sort is stable, so equal-slot sessions keep their
// fold order. Aggregation is pure; re-aggregating its own output under the
// same keys is a no-op.
func Aggregate(batches []Batch) []model.Session {
	seen := make(map[string]struct{})
	out := make([]model.Session, 0)

	for _, b := range batches {
		key := b.Key
		if key == nil {
			key = FacilityDateStartKey
		}
		for _, s := range b.Sessions {
			k := key(s)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}
