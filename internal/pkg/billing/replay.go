package billing

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// DefaultAlertsPerPage is the page size used against alert/webhooks.
const DefaultAlertsPerPage = 50

// ReplayEngine recovers from webhook delivery gaps by pulling provider-side
// event history and replaying it through the reconciler. A run is strictly
// sequential and fail-fast: the resume checkpoint is the newest successfully
// stored replayed event, so a skipped failure would desynchronize every
// later run.
type ReplayEngine struct {
	api           API
	svc           *Service
	store         *EventStore
	retentionDays int
	alertsPerPage int

	now func() time.Time
}

// NewReplayEngine wires a replay engine from its collaborators.
func NewReplayEngine(api API, svc *Service, store *EventStore, retentionDays int) *ReplayEngine {
	return &ReplayEngine{
		api:           api,
		svc:           svc,
		store:         store,
		retentionDays: retentionDays,
		alertsPerPage: DefaultAlertsPerPage,
		now:           time.Now,
	}
}

type replayItem struct {
	time    time.Time
	payload map[string]string
}

// Run executes one replay pass and returns the number of events that went
// through a reconcile handler. Any dispatch or storage error aborts the run
// immediately; the caller is expected to exit nonzero.
func (e *ReplayEngine) Run(ctx context.Context) (int, error) {
	runID := uuid.NewString()

	endTime := e.now().UTC().Add(-time.Minute)
	earliestStart := endTime.AddDate(0, 0, -e.retentionDays)

	latest, err := e.store.LatestReplayedTime()
	if err != nil {
		return 0, err
	}
	startTime := earliestStart
	if latest != nil {
		if resumed := latest.Add(time.Second); resumed.After(earliestStart) {
			startTime = resumed
		}
	}

	if err := e.store.PruneReplayedBefore(earliestStart); err != nil {
		return 0, err
	}

	items, err := e.fetchEventPayloads(ctx, startTime, endTime)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, item := range items {
		alertName := item.payload["alert_name"]
		if HasHandler(alertName) {
			log.Infof("replay %s: replaying %s", runID, alertName)
			// Handlers may mutate the payload; dispatch a copy so the
			// audit row keeps the original.
			if _, err := e.svc.Dispatch(ctx, maps.Clone(item.payload)); err != nil {
				return replayed, fmt.Errorf("replay %s: dispatch %s at %s failed: %w",
					runID, alertName, item.time.Format(EventTimeFormat), err)
			}
			replayed++
		}
		if err := e.store.RecordReplayedEvent(item.time, item.payload); err != nil {
			return replayed, fmt.Errorf("replay %s: storing replayed event failed: %w", runID, err)
		}
	}

	log.Infof("replay %s: replayed %d of %d events", runID, replayed, len(items))
	return replayed, nil
}

// fetchEventPayloads pages through the webhook history (1-based pages, empty
// page terminates), normalizes each entry to the live-webhook payload shape
// and returns the whole window sorted ascending by event_time.
func (e *ReplayEngine) fetchEventPayloads(ctx context.Context, startTime, endTime time.Time) ([]replayItem, error) {
	var items []replayItem
	for page := 1; ; page++ {
		events, err := e.api.GetWebhookHistory(ctx, page, e.alertsPerPage, startTime, endTime)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			payload := maps.Clone(event.Fields)
			if payload == nil {
				payload = map[string]string{}
			}
			// History entries carry alert_name in the envelope; fold it into
			// the fields so they look identical to live webhook payloads.
			payload["alert_name"] = event.AlertName

			t, err := ParseEventTime(payload["event_time"])
			if err != nil {
				return nil, err
			}
			items = append(items, replayItem{time: t, payload: payload})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].time.Before(items[j].time)
	})
	return items, nil
}
