package source

import (
	"context"
	"encoding/json"
	"fmt"

	"icetime/internal/config"
	"icetime/internal/fetch"
	"icetime/internal/model"
	"icetime/internal/schedule"
)

// apiEvent is the wire shape shared by the JSON calendar APIs the
// recreation sites expose. Browser-rendered calendars load the same JSON
// client-side, so browserAdapter reuses this decoding.
type apiEvent struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	EventItemID string `json:"eventItemId"`
	AgeRange    string `json:"ageRange"`
	Description string `json:"description"`
	Openings    int    `json:"openings"`
	URL         string `json:"url"`
}

type apiResponse struct {
	Events []apiEvent `json:"events"`
}

// apiAdapter handles sources whose calendar JSON is served directly over
// HTTP, no script execution required.
type apiAdapter struct {
	src     config.SourceConfig
	fetcher *fetch.Fetcher
}

func (a *apiAdapter) ID() string { return a.src.ID }

func (a *apiAdapter) Fetch(ctx context.Context, _ schedule.Window) (Payload, error) {
	body, err := a.fetcher.Get(ctx, a.src.URL)
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", a.src.ID, err)
	}
	records, err := decodeAPIEvents(body)
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", a.src.ID, err)
	}
	return Payload{Records: records, Specials: a.src.Specials}, nil
}

func decodeAPIEvents(body []byte) ([]model.RawEventRecord, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	records := make([]model.RawEventRecord, 0, len(resp.Events))
	for _, ev := range resp.Events {
		records = append(records, model.RawEventRecord{
			FacilityText:  ev.Location,
			DateText:      ev.Date,
			StartTimeText: ev.StartTime,
			EndTimeText:   ev.EndTime,
			ActivityName:  ev.Title,
			AgeRange:      ev.AgeRange,
			Description:   ev.Description,
			Openings:      ev.Openings,
			EventItemID:   ev.EventItemID,
			ActivityURL:   ev.URL,
		})
	}
	return records, nil
}
