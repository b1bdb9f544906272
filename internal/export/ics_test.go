package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icetime/internal/model"
)

func TestWriteICS(t *testing.T) {
	sessions := []model.Session{{
		Facility: "Hillcrest Centre", City: "Vancouver", Address: "4575 Clancy Loranger Way",
		Date: "2026-01-26", StartTime: "12:00", EndTime: "13:00",
		Type: model.FamilySkate, ActivityName: "Family Play and Skate",
		Description: "14 openings",
	}}

	path := filepath.Join(t.TempDir(), "sessions.ics")
	require.NoError(t, WriteICS(path, sessions))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Family Play and Skate")
	assert.Contains(t, body, "hillcrest-centre-2026-01-26-1200@icetime")
	assert.Contains(t, body, "BEGIN:VEVENT")
	assert.Contains(t, body, "END:VCALENDAR")
}

func TestSessionUID_Stable(t *testing.T) {
	s := model.Session{Facility: "Moody Park Arena", Date: "2026-01-27", StartTime: "18:00"}
	assert.Equal(t, sessionUID(s), sessionUID(s))
	assert.True(t, strings.HasSuffix(sessionUID(s), "@icetime"))
}

func TestBuildCalendar_BadDate(t *testing.T) {
	_, err := BuildCalendar([]model.Session{{Date: "garbage", StartTime: "12:00", EndTime: "13:00"}})
	assert.Error(t, err)
}
