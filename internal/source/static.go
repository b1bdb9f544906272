package source

import (
	"context"

	"icetime/internal/config"
	"icetime/internal/schedule"
)

// staticAdapter handles municipalities with no machine-readable source at
// all: operators hand-encode the weekly pattern and its dated exceptions
// in configuration, and the adapter just hands them to the engine. This
// replaces what would otherwise be one bespoke function per city.
type staticAdapter struct {
	src config.SourceConfig
}

func (a *staticAdapter) ID() string { return a.src.ID }

func (a *staticAdapter) Fetch(_ context.Context, _ schedule.Window) (Payload, error) {
	return Payload{
		Rules:      a.src.Rules,
		Exceptions: a.src.Exceptions,
		Specials:   a.src.Specials,
	}, nil
}
