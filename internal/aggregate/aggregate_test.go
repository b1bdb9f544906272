package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icetime/internal/model"
)

func session(facility, date, start, activity string) model.Session {
	return model.Session{
		Facility:     facility,
		Date:         date,
		StartTime:    start,
		EndTime:      "23:00",
		ActivityName: activity,
	}
}

func TestAggregate_FirstBatchWins(t *testing.T) {
	first := session("Hillcrest Centre", "2026-01-12", "12:00", "Public Skating")
	first.Description = "from batch one"
	second := session("Hillcrest Centre", "2026-01-12", "12:00", "Public Skating")
	second.Description = "from batch two"

	out := Aggregate([]Batch{
		{Sessions: []model.Session{first}},
		{Sessions: []model.Session{second}},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "from batch one", out[0].Description)
}

func TestAggregate_SortedByDateThenStart(t *testing.T) {
	out := Aggregate([]Batch{{Sessions: []model.Session{
		session("B", "2026-01-13", "09:00", "a"),
		session("A", "2026-01-12", "18:00", "b"),
		session("C", "2026-01-12", "08:00", "c"),
	}}})

	require.Len(t, out, 3)
	assert.Equal(t, "C", out[0].Facility)
	assert.Equal(t, "A", out[1].Facility)
	assert.Equal(t, "B", out[2].Facility)
}

func TestAggregate_StableForEqualSlots(t *testing.T) {
	// Same date and start at different facilities: both survive and keep
	// submission order.
	out := Aggregate([]Batch{
		{Sessions: []model.Session{session("First", "2026-01-12", "12:00", "x")}},
		{Sessions: []model.Session{session("Second", "2026-01-12", "12:00", "y")}},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "First", out[0].Facility)
	assert.Equal(t, "Second", out[1].Facility)
}

func TestAggregate_Idempotent(t *testing.T) {
	batches := []Batch{{Sessions: []model.Session{
		session("A", "2026-01-12", "12:00", "x"),
		session("A", "2026-01-12", "12:00", "x"),
		session("B", "2026-01-13", "09:00", "y"),
	}}}

	once := Aggregate(batches)
	twice := Aggregate([]Batch{{Sessions: once}})
	assert.Equal(t, once, twice)
}

func TestFacilityEventKey(t *testing.T) {
	a := session("A", "2026-01-12", "12:00", "x")
	a.EventItemID = "evt-1"
	b := session("A", "2026-01-13", "14:00", "y")
	b.EventItemID = "evt-1"

	out := Aggregate([]Batch{{
		Sessions: []model.Session{a, b},
		Key:      FacilityEventKey,
	}})
	assert.Len(t, out, 1, "same external id at one facility is one session")

	// Without an id the key degrades to (facility, date, start).
	c := session("A", "2026-01-12", "12:00", "x")
	d := session("A", "2026-01-12", "12:00", "x")
	out = Aggregate([]Batch{{
		Sessions: []model.Session{c, d},
		Key:      FacilityEventKey,
	}})
	assert.Len(t, out, 1)
}

func TestDateStartActivityKey(t *testing.T) {
	// Two simultaneous rink surfaces share facility/date/start but differ
	// by activity name: both must survive under this key.
	a := session("Arena", "2026-01-12", "12:00", "Shinny - Rink 1")
	b := session("Arena", "2026-01-12", "12:00", "Shinny - Rink 2")

	out := Aggregate([]Batch{{
		Sessions: []model.Session{a, b},
		Key:      DateStartActivityKey,
	}})
	assert.Len(t, out, 2)

	// Under the default key the second surface would be swallowed.
	out = Aggregate([]Batch{{Sessions: []model.Session{a, b}}})
	assert.Len(t, out, 1)
}
