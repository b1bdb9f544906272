package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icetime/internal/model"
)

func testSessions() []model.Session {
	return []model.Session{
		{
			Facility: "Hillcrest Centre", City: "Vancouver", Address: "4575 Clancy Loranger Way",
			Lat: 49.2439, Lng: -123.1077,
			Date: "2026-01-26", StartTime: "12:00", EndTime: "13:00",
			Type: model.FamilySkate, ActivityName: "Family Play and Skate",
		},
		{
			Facility: "Moody Park Arena", City: "New Westminster", Address: "701 Eighth Ave",
			Date: "2026-01-27", StartTime: "18:00", EndTime: "19:30",
			Type: model.DropInHockey, ActivityName: "Adult Shinny", EventItemID: "evt-7",
		},
	}
}

func TestReplaceAll(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, "run-1", testSessions()))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A later run fully replaces the previous one.
	require.NoError(t, s.ReplaceAll(ctx, "run-2", testSessions()[:1]))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteJSON_FieldContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sessions.json")
	require.NoError(t, WriteJSON(path, testSessions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	first := decoded[0]
	assert.Equal(t, "Hillcrest Centre", first["facility"])
	assert.Equal(t, "2026-01-26", first["date"])
	assert.Equal(t, "12:00", first["startTime"])
	assert.Equal(t, "13:00", first["endTime"])
	assert.Equal(t, "family-skate", first["type"])
	assert.Equal(t, "Family Play and Skate", first["activityName"])
	_, hasEventID := first["eventItemId"]
	assert.False(t, hasEventID, "empty optional fields are omitted")
	assert.Equal(t, "evt-7", decoded[1]["eventItemId"])
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, WriteJSON(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
