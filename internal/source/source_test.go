package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icetime/internal/config"
	"icetime/internal/model"
	"icetime/internal/schedule"
)

func TestBuild(t *testing.T) {
	cases := []struct {
		kind string
		src  config.SourceConfig
	}{
		{config.KindAPI, config.SourceConfig{ID: "a", Kind: config.KindAPI, URL: "http://x"}},
		{config.KindBrowser, config.SourceConfig{ID: "b", Kind: config.KindBrowser, URL: "http://x"}},
		{config.KindICS, config.SourceConfig{ID: "c", Kind: config.KindICS, URL: "http://x"}},
		{config.KindPDF, config.SourceConfig{ID: "d", Kind: config.KindPDF, TextPath: "x.json"}},
		{config.KindStatic, config.SourceConfig{ID: "e", Kind: config.KindStatic}},
	}
	for _, tc := range cases {
		a, err := Build(tc.src, nil)
		require.NoError(t, err, tc.kind)
		assert.Equal(t, tc.src.ID, a.ID())
	}

	_, err := Build(config.SourceConfig{ID: "z", Kind: "telex"}, nil)
	assert.Error(t, err)
}

func TestDecodeAPIEvents(t *testing.T) {
	body := `{
	  "events": [
	    {
	      "title": "Toonie Skate",
	      "location": "Hillcrest Centre - Rink",
	      "date": "Monday, January 12, 2026",
	      "startTime": "12:00 PM",
	      "endTime": "1:00 PM",
	      "eventItemId": "evt-991",
	      "openings": 14
	    }
	  ]
	}`

	records, err := decodeAPIEvents([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Hillcrest Centre - Rink", r.FacilityText)
	assert.Equal(t, "Monday, January 12, 2026", r.DateText)
	assert.Equal(t, "12:00 PM", r.StartTimeText)
	assert.Equal(t, "evt-991", r.EventItemID)
	assert.Equal(t, 14, r.Openings)

	_, err = decodeAPIEvents([]byte("<html>not json</html>"))
	assert.Error(t, err)
}

func TestBrowserAdapter_DecodesRenderedJSON(t *testing.T) {
	a := &browserAdapter{
		src: config.SourceConfig{ID: "van-browser", URL: "http://example.org/cal", WaitSelector: "[data-loaded]"},
		runTasks: func(_ context.Context, url, waitSelector string) (string, error) {
			assert.Equal(t, "http://example.org/cal", url)
			assert.Equal(t, "[data-loaded]", waitSelector)
			return `{"events":[{"title":"Public Skating","location":"Kits","date":"2026-01-12","startTime":"18:00","endTime":"19:30"}]}`, nil
		},
	}

	p, err := a.Fetch(context.Background(), schedule.Window{})
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	assert.Equal(t, "Public Skating", p.Records[0].ActivityName)
}

func TestStaticAdapter(t *testing.T) {
	src := config.SourceConfig{
		ID:   "burnaby",
		Kind: config.KindStatic,
		Rules: []model.ScheduleRule{
			{FacilityRef: "Bill Copeland", DayOfWeek: 6, StartTime: "13:00", EndTime: "14:30", ActivityName: "Public Skating"},
		},
		Exceptions: map[string]model.ExceptionSet{
			"bc": {CancelledDates: []string{"2026-02-14"}},
		},
	}

	a, err := Build(src, nil)
	require.NoError(t, err)

	p, err := a.Fetch(context.Background(), schedule.Window{})
	require.NoError(t, err)
	assert.Len(t, p.Rules, 1)
	assert.Contains(t, p.Exceptions, "bc")
	assert.Empty(t, p.Records)
}

const testICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//icetime test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-skate@example.org\r\n" +
	"SUMMARY:Public Skating\r\n" +
	"LOCATION:Moody Park Arena\r\n" +
	"DTSTART:20260105T120000Z\r\n" +
	"DTEND:20260105T130000Z\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=10\r\n" +
	"EXDATE:20260119T120000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:oneoff@example.org\r\n" +
	"SUMMARY:Holiday Skate\r\n" +
	"LOCATION:Moody Park Arena\r\n" +
	"DTSTART:20260216T100000Z\r\n" +
	"DTEND:20260216T160000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestDecodeICS(t *testing.T) {
	w := schedule.Window{Start: "2026-01-05", End: "2026-02-28"}

	records, err := decodeICS("nw-ics", []byte(testICS), w)
	require.NoError(t, err)

	var weekly, oneoff []model.RawEventRecord
	for _, r := range records {
		if r.ActivityName == "Public Skating" {
			weekly = append(weekly, r)
		} else {
			oneoff = append(oneoff, r)
		}
	}

	// Mondays Jan 5 .. Feb 23 within the window, minus the EXDATE Jan 19.
	require.Len(t, weekly, 7)
	for _, r := range weekly {
		assert.Equal(t, "Moody Park Arena", r.FacilityText)
		assert.Equal(t, "12:00", r.StartTime)
		assert.Equal(t, "13:00", r.EndTime)
		assert.NotEqual(t, "2026-01-19", r.ISODate)
		assert.True(t, strings.HasPrefix(r.EventItemID, "weekly-skate@example.org/"),
			"recurring instances carry per-instance ids")
	}
	assert.Equal(t, "2026-01-05", weekly[0].ISODate)

	require.Len(t, oneoff, 1)
	assert.Equal(t, "2026-02-16", oneoff[0].ISODate)
	assert.Equal(t, "10:00", oneoff[0].StartTime)
	assert.Equal(t, "oneoff@example.org", oneoff[0].EventItemID)
}

func TestDecodeICS_OutOfWindowSingleEvent(t *testing.T) {
	w := schedule.Window{Start: "2026-03-01", End: "2026-03-31"}
	records, err := decodeICS("nw-ics", []byte(testICS), w)
	require.NoError(t, err)

	for _, r := range records {
		assert.NotEqual(t, "Holiday Skate", r.ActivityName,
			"the February one-off is outside the March window")
	}
}

func TestDecodeICS_BadPayload(t *testing.T) {
	_, err := decodeICS("x", []byte("this is not a calendar"), schedule.Window{Start: "2026-01-01", End: "2026-01-31"})
	assert.Error(t, err)
}
