// Package pipeline runs one refresh cycle: fetch and adapt every
// configured source with per-source failure isolation, expand pattern
// sources through the recurrence engine, normalize raw records, enrich
// with facility and activity-type data, then aggregate. The pipeline has
// no persistent state; reference data is read-only and everything else
// lives for one run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"icetime/internal/aggregate"
	"icetime/internal/classify"
	"icetime/internal/config"
	"icetime/internal/directory"
	"icetime/internal/fetch"
	appLog "icetime/internal/log"
	"icetime/internal/model"
	"icetime/internal/schedule"
	"icetime/internal/source"
	"icetime/internal/timeutil"
)

// Stats are the per-run observability counters. Per-record drops are
// counted and logged, never surfaced as errors.
type Stats struct {
	RunID string

	Sources       int
	SourcesFailed int

	RecordsIn         int
	DroppedUnparsable int
	DroppedInvalid    int
	DroppedUnresolved int
	SkippedNonSession int

	Sessions int
}

type boundAdapter struct {
	src     config.SourceConfig
	adapter source.Adapter
}

// Pipeline wires the configured sources to the normalization core.
type Pipeline struct {
	cfg      *config.Config
	dir      *directory.Directory
	adapters []boundAdapter

	// now is swapped out by tests.
	now func() time.Time
}

// New builds a Pipeline from configuration. The facility directory and
// source tables are the one fatal dependency: if they cannot be
// constructed there is no run.
func New(cfg *config.Config, dir *directory.Directory, fetcher *fetch.Fetcher) (*Pipeline, error) {
	p := &Pipeline{
		cfg: cfg,
		dir: dir,
		now: time.Now,
	}
	for _, src := range cfg.Sources {
		a, err := source.Build(src, fetcher)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		p.adapters = append(p.adapters, boundAdapter{src: src, adapter: a})
	}
	return p, nil
}

// Run executes one refresh cycle and returns the final deduplicated,
// sorted session collection. A source failing to fetch or decode
// contributes zero records; it never aborts the other sources.
func (p *Pipeline) Run(ctx context.Context) ([]model.Session, Stats, error) {
	stats := Stats{
		RunID:   uuid.NewString(),
		Sources: len(p.adapters),
	}
	now := p.now()

	appLog.Info("refresh run starting", "run_id", stats.RunID, "sources", stats.Sources)

	var batches []aggregate.Batch
	for _, ba := range p.adapters {
		w := p.windowFor(ba.src, now)

		payload, err := ba.adapter.Fetch(ctx, w)
		if err != nil {
			stats.SourcesFailed++
			appLog.Error("source failed; contributing zero records", err, "source", ba.src.ID)
			continue
		}

		sessions := p.sessionsFor(ba.src, payload, w, &stats)
		batches = append(batches, aggregate.Batch{
			Sessions: sessions,
			Key:      keyFor(ba.src.DedupKey),
		})
	}

	out := aggregate.Aggregate(batches)
	stats.Sessions = len(out)

	appLog.Info("refresh run finished",
		"run_id", stats.RunID,
		"sessions", stats.Sessions,
		"sources_failed", stats.SourcesFailed,
		"records_in", stats.RecordsIn,
		"dropped_unparsable", stats.DroppedUnparsable,
		"dropped_invalid", stats.DroppedInvalid,
		"dropped_unresolved", stats.DroppedUnresolved,
		"skipped_non_session", stats.SkippedNonSession,
	)
	return out, stats, nil
}

// windowFor computes a source's effective expansion window, applying the
// seasonal Jan–Mar fallback when a seasonal source declares no dates.
func (p *Pipeline) windowFor(src config.SourceConfig, now time.Time) schedule.Window {
	validFrom, validTo := src.ValidFrom, src.ValidTo
	if src.Seasonal && validFrom == "" && validTo == "" {
		validFrom, validTo = config.SeasonWindow(now)
	}
	return schedule.EffectiveWindow(validFrom, validTo, now, p.cfg.HorizonDays)
}

// sessionsFor turns one source's payload into enriched sessions.
func (p *Pipeline) sessionsFor(src config.SourceConfig, payload source.Payload, w schedule.Window, stats *Stats) []model.Session {
	stats.RecordsIn += len(payload.Records)

	res, err := schedule.Expand(payload.Rules, payload.Exceptions, w)
	if err != nil {
		appLog.Error("expansion failed; contributing zero pattern sessions", err, "source", src.ID)
	}
	res = schedule.AppendSpecials(res, payload.Specials, w)
	// Expanded instances and in-window specials count as records too.
	stats.RecordsIn += len(res.Sessions) + res.DroppedInvalid
	stats.DroppedInvalid += res.DroppedInvalid

	sessions := res.Sessions
	for _, rec := range payload.Records {
		s, ok := p.recordToSession(src, rec, w, stats)
		if !ok {
			continue
		}
		sessions = append(sessions, s)
	}

	out := sessions[:0]
	for _, s := range sessions {
		enriched, ok := p.enrich(src, s, stats)
		if !ok {
			continue
		}
		out = append(out, enriched)
	}
	return out
}

// recordToSession normalizes a raw record's dates and times. Unparsable
// records and invalid spans are dropped with a counter; records outside
// the source window are silently out of scope.
func (p *Pipeline) recordToSession(src config.SourceConfig, rec model.RawEventRecord, w schedule.Window, stats *Stats) (model.Session, bool) {
	date := rec.ISODate
	if date == "" {
		var err error
		date, err = timeutil.ParseDate(rec.DateText)
		if err != nil {
			stats.DroppedUnparsable++
			appLog.Debug("record dropped: unparsable date", "source", src.ID, "date", rec.DateText)
			return model.Session{}, false
		}
	}

	start := rec.StartTime
	if start == "" {
		var err error
		start, err = timeutil.ParseClock(rec.StartTimeText)
		if err != nil {
			stats.DroppedUnparsable++
			appLog.Debug("record dropped: unparsable start time", "source", src.ID, "start", rec.StartTimeText)
			return model.Session{}, false
		}
	}

	end := rec.EndTime
	if end == "" {
		var err error
		end, err = timeutil.ParseClock(rec.EndTimeText)
		if err != nil {
			stats.DroppedUnparsable++
			appLog.Debug("record dropped: unparsable end time", "source", src.ID, "end", rec.EndTimeText)
			return model.Session{}, false
		}
	}

	if !timeutil.ValidSpan(start, end) {
		stats.DroppedInvalid++
		appLog.Debug("record dropped: invalid span", "source", src.ID, "date", date, "start", start, "end", end)
		return model.Session{}, false
	}

	if !w.Contains(date) {
		return model.Session{}, false
	}

	facility := rec.FacilityRef
	if facility == "" {
		facility = rec.FacilityText
	}

	description := rec.Description
	if description == "" && rec.Openings > 0 {
		description = fmt.Sprintf("%d openings", rec.Openings)
	}

	return model.Session{
		Facility:     facility,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		ActivityName: rec.ActivityName,
		AgeRange:     rec.AgeRange,
		Description:  description,
		ActivityURL:  rec.ActivityURL,
		EventItemID:  rec.EventItemID,
	}, true
}

// enrich resolves the facility reference and classifies the activity.
// Sessions whose facility cannot be resolved, even through the source's
// configured default, are dropped with a counter.
func (p *Pipeline) enrich(src config.SourceConfig, s model.Session, stats *Stats) (model.Session, bool) {
	if src.Swim && classify.ShouldSkipSwim(s.ActivityName) {
		stats.SkippedNonSession++
		return model.Session{}, false
	}

	f, ok := p.dir.ByName(s.Facility)
	if !ok {
		if resolved := p.dir.Resolve(s.Facility, src.City); resolved != nil {
			f, ok = *resolved, true
		}
	}
	if !ok && src.DefaultFacility != "" {
		f, ok = p.dir.ByName(src.DefaultFacility)
	}
	if !ok {
		stats.DroppedUnresolved++
		appLog.Debug("record dropped: unresolved facility", "source", src.ID, "facility", s.Facility)
		return model.Session{}, false
	}

	s.Facility = f.Name
	s.City = f.City
	s.Address = f.Address
	s.Lat = f.Lat
	s.Lng = f.Lng
	s.FacilityURL = f.FacilityURL

	if s.ScheduleURL == "" {
		s.ScheduleURL = src.ScheduleURL
		if s.ScheduleURL == "" {
			s.ScheduleURL = f.ScheduleURL
		}
	}

	if s.Type == "" {
		if src.Swim {
			s.Type = classify.Swimming(s.ActivityName)
		} else {
			s.Type = classify.Skating(s.ActivityName)
		}
	}
	return s, true
}

func keyFor(name string) aggregate.KeyFunc {
	switch name {
	case config.DedupFacilityEvent:
		return aggregate.FacilityEventKey
	case config.DedupDateStartActivity:
		return aggregate.DateStartActivityKey
	default:
		return aggregate.FacilityDateStartKey
	}
}
