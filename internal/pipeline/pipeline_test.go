package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icetime/internal/config"
	"icetime/internal/directory"
	"icetime/internal/fetch"
	"icetime/internal/model"
)

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	d, err := directory.New([]model.Facility{
		{
			Name:    "Hillcrest Centre",
			City:    "Vancouver",
			Address: "4575 Clancy Loranger Way",
			Lat:     49.2439,
			Lng:     -123.1077,
			Aliases: []string{"hillcrest"},
		},
		{
			Name:    "Vancouver Aquatic Centre",
			City:    "Vancouver",
			Aliases: []string{"aquatic centre"},
		},
	})
	require.NoError(t, err)
	return d
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
}

func newPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	p, err := New(cfg, testDirectory(t), fetch.NewFetcher(t.TempDir(), 0))
	require.NoError(t, err)
	p.now = fixedNow
	return p
}

func TestRun_EndToEnd_StaticSource(t *testing.T) {
	cfg := &config.Config{
		Sources: []config.SourceConfig{{
			ID:   "vancouver-static",
			City: "Vancouver",
			Kind: config.KindStatic,
			Rules: []model.ScheduleRule{{
				FacilityRef:  "Hillcrest Centre",
				DayOfWeek:    1,
				StartTime:    "12:00",
				EndTime:      "13:00",
				ActivityName: "Family Play and Skate",
				ValidFrom:    "2026-01-05",
				ValidTo:      "2026-02-24",
			}},
		}},
	}

	sessions, stats, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)

	// Window start clamps to "today" (2026-01-20): Mondays Jan 26 through
	// Feb 23 only.
	require.Len(t, sessions, 5)
	assert.Equal(t, "2026-01-26", sessions[0].Date)
	for _, s := range sessions {
		assert.Equal(t, "Hillcrest Centre", s.Facility)
		assert.Equal(t, "Vancouver", s.City)
		assert.Equal(t, "4575 Clancy Loranger Way", s.Address)
		assert.InDelta(t, 49.2439, s.Lat, 1e-9)
		assert.Equal(t, model.FamilySkate, s.Type)
		assert.Equal(t, "Family Play and Skate", s.ActivityName)
	}
	assert.Equal(t, 5, stats.Sessions)
	assert.Zero(t, stats.SourcesFailed)
}

func TestRun_DedupAcrossSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[
		  {"title":"Family Play and Skate","location":"Hillcrest - Rink",
		   "date":"Monday, January 26, 2026","startTime":"12:00 PM","endTime":"1:00 PM",
		   "eventItemId":"evt-1"},
		  {"title":"Toonie Skate","location":"Nowhere Arena",
		   "date":"2026-01-27","startTime":"18:00","endTime":"19:00"},
		  {"title":"Broken","location":"Hillcrest",
		   "date":"sometime soon","startTime":"18:00","endTime":"19:00"}
		]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{
				ID:   "vancouver-static",
				City: "Vancouver",
				Kind: config.KindStatic,
				Rules: []model.ScheduleRule{{
					FacilityRef:  "Hillcrest Centre",
					DayOfWeek:    1,
					StartTime:    "12:00",
					EndTime:      "13:00",
					ActivityName: "Family Play and Skate",
					ValidFrom:    "2026-01-26",
					ValidTo:      "2026-01-26",
				}},
			},
			{
				ID:   "vancouver-api",
				City: "Vancouver",
				Kind: config.KindAPI,
				URL:  srv.URL,
			},
		},
	}

	sessions, stats, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)

	// The API's Hillcrest record shares (facility, date, start) with the
	// static batch, which was submitted first and wins. The "Nowhere
	// Arena" record is unresolved, the "Broken" one unparsable.
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].EventItemID, "static batch won the dedup")
	assert.Equal(t, 1, stats.DroppedUnresolved)
	assert.Equal(t, 1, stats.DroppedUnparsable)
}

func TestRun_SourceFailureIsIsolated(t *testing.T) {
	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{
				ID:   "dead-api",
				City: "Vancouver",
				Kind: config.KindAPI,
				URL:  "http://127.0.0.1:1/unreachable",
			},
			{
				ID:   "vancouver-static",
				City: "Vancouver",
				Kind: config.KindStatic,
				Specials: []model.SpecialEvent{{
					FacilityRef:  "Hillcrest Centre",
					Date:         "2026-02-16",
					StartTime:    "10:00",
					EndTime:      "16:00",
					ActivityName: "Family Day Skate",
				}},
			},
		},
	}

	sessions, stats, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err, "a dead source must not abort the run")
	require.Len(t, sessions, 1)
	assert.Equal(t, "Family Day Skate", sessions[0].ActivityName)
	assert.Equal(t, model.FamilySkate, sessions[0].Type)
	assert.Equal(t, 1, stats.SourcesFailed)
}

func TestRun_DefaultFacilityFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[
		  {"title":"Public Skating","location":"Main Rink",
		   "date":"2026-01-26","startTime":"12:00","endTime":"13:00"}
		]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		Sources: []config.SourceConfig{{
			ID:              "one-rink-town",
			City:            "Vancouver",
			Kind:            config.KindAPI,
			URL:             srv.URL,
			DefaultFacility: "Hillcrest Centre",
		}},
	}

	sessions, stats, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Hillcrest Centre", sessions[0].Facility)
	assert.Zero(t, stats.DroppedUnresolved)
}

func TestRun_SwimSourceSkipsSaunaOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[
		  {"title":"Lap Swim","location":"Aquatic Centre",
		   "date":"2026-01-26","startTime":"06:00","endTime":"08:00"},
		  {"title":"Sauna","location":"Aquatic Centre",
		   "date":"2026-01-26","startTime":"06:00","endTime":"08:00"}
		]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		Sources: []config.SourceConfig{{
			ID:   "vancouver-pools",
			City: "Vancouver",
			Kind: config.KindAPI,
			URL:  srv.URL,
			Swim: true,
		}},
	}

	sessions, stats, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, model.LapSwim, sessions[0].Type)
	assert.Equal(t, 1, stats.SkippedNonSession)
}

func TestRun_RecordsOutsideWindowAreExcluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[
		  {"title":"Public Skating","location":"Hillcrest",
		   "date":"2025-12-01","startTime":"12:00","endTime":"13:00"},
		  {"title":"Public Skating","location":"Hillcrest",
		   "date":"2026-01-26","startTime":"12:00","endTime":"13:00"}
		]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		Sources: []config.SourceConfig{{
			ID:   "vancouver-api",
			City: "Vancouver",
			Kind: config.KindAPI,
			URL:  srv.URL,
		}},
	}

	sessions, _, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1, "past-dated records never back-fill")
	assert.Equal(t, "2026-01-26", sessions[0].Date)
}
