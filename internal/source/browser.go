package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"icetime/internal/config"
	"icetime/internal/schedule"
)

// browserFetchTimeout bounds one headless navigation end to end.
const browserFetchTimeout = 45 * time.Second

// browserAdapter handles calendars that only exist after browser-side
// script execution: the page's own JavaScript fetches the schedule JSON
// and writes it into the DOM. A headless Chromium navigates to the page,
// waits for the configured selector to signal that loading finished, and
// pulls the rendered JSON back out. The JSON matches the apiEvent shape,
// so decoding is shared with apiAdapter.
type browserAdapter struct {
	src config.SourceConfig

	// runTasks is swapped out by tests; production runs chromedp.
	runTasks func(ctx context.Context, url, waitSelector string) (string, error)
}

func (b *browserAdapter) ID() string { return b.src.ID }

func (b *browserAdapter) Fetch(ctx context.Context, _ schedule.Window) (Payload, error) {
	run := b.runTasks
	if run == nil {
		run = runChromium
	}

	raw, err := run(ctx, b.src.URL, b.src.WaitSelector)
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", b.src.ID, err)
	}
	records, err := decodeAPIEvents([]byte(raw))
	if err != nil {
		return Payload{}, fmt.Errorf("source %s: %w", b.src.ID, err)
	}
	return Payload{Records: records, Specials: b.src.Specials}, nil
}

// runChromium drives a headless Chromium through one page load and
// extracts the text content of the wait element, which carries the loaded
// schedule JSON.
func runChromium(parentCtx context.Context, url, waitSelector string) (string, error) {
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, browserFetchTimeout)
	defer timeoutCancel()

	var raw string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
		// Small extra delay to let the page finish writing the payload.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Text(waitSelector, &raw, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("browser: chromedp run failed: %w", err)
	}
	return raw, nil
}
