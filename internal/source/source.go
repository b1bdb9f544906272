// Package source holds the per-source-family adapters. Each adapter
// reduces one municipality's publishing channel to the shapes the
// normalization core consumes: RawEventRecords for event-list sources, or
// ScheduleRules plus ExceptionSets for pattern-based ones. Everything
// site-specific stays behind the Adapter interface; failures here are
// isolated per source and never abort the run.
package source

import (
	"context"
	"fmt"
	"time"

	"icetime/internal/config"
	"icetime/internal/fetch"
	"icetime/internal/model"
	"icetime/internal/schedule"
)

// Payload is one source's raw contribution to a refresh run.
type Payload struct {
	Records    []model.RawEventRecord
	Rules      []model.ScheduleRule
	Exceptions map[string]model.ExceptionSet
	Specials   []model.SpecialEvent
}

// Adapter fetches and decodes a single source. The window lets adapters
// that expand on their own side (ICS feeds) bound their output; the
// pattern-based adapters ignore it and leave expansion to the engine.
type Adapter interface {
	ID() string
	Fetch(ctx context.Context, w schedule.Window) (Payload, error)
}

// DefaultFetchDelay is the polite inter-request pause for network-backed
// adapters.
const DefaultFetchDelay = 2 * time.Second

// Build constructs the adapter for one source config.
func Build(src config.SourceConfig, fetcher *fetch.Fetcher) (Adapter, error) {
	switch src.Kind {
	case config.KindAPI:
		return &apiAdapter{src: src, fetcher: fetcher}, nil
	case config.KindBrowser:
		return &browserAdapter{src: src}, nil
	case config.KindICS:
		return &icsAdapter{src: src, fetcher: fetcher}, nil
	case config.KindPDF:
		return &pdfAdapter{src: src}, nil
	case config.KindStatic:
		return &staticAdapter{src: src}, nil
	default:
		return nil, fmt.Errorf("source: unknown kind %q for %q", src.Kind, src.ID)
	}
}
