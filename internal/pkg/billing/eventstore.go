package billing

import (
	"time"

	"github.com/abroun/paddlesync/app/models"
)

// EventStore is the bounded audit log of received and replayed webhook
// payloads. Retention is enforced opportunistically: stale rows are pruned
// before each write, not by a background job. Reconciliation does not depend
// on it for correctness, but the replay resume checkpoint does.
type EventStore struct {
	repo                 Repository
	webhookRetentionDays int
	replayRetentionDays  int

	now func() time.Time
}

// NewEventStore creates an event store with the given retention windows.
func NewEventStore(repo Repository, webhookRetentionDays, replayRetentionDays int) *EventStore {
	return &EventStore{
		repo:                 repo,
		webhookRetentionDays: webhookRetentionDays,
		replayRetentionDays:  replayRetentionDays,
		now:                  time.Now,
	}
}

// RecordWebhookEvent stores a live webhook payload. With retention disabled
// (<= 0 days) nothing is stored at all.
func (s *EventStore) RecordWebhookEvent(eventTime time.Time, payload map[string]string) error {
	if s.webhookRetentionDays <= 0 {
		return nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -s.webhookRetentionDays)
	if err := s.repo.DeleteWebhookEventsBefore(cutoff); err != nil {
		return err
	}
	return s.repo.CreateWebhookEvent(&models.WebhookEvent{
		Time:    eventTime,
		Payload: encodePayload(payload),
	})
}

// RecordReplayedEvent stores a replayed payload keyed by its content hash;
// an already-recorded payload is skipped.
func (s *EventStore) RecordReplayedEvent(eventTime time.Time, payload map[string]string) error {
	cutoff := s.now().UTC().AddDate(0, 0, -s.replayRetentionDays)
	if err := s.repo.DeleteReplayedEventsBefore(cutoff); err != nil {
		return err
	}
	_, err := s.repo.CreateReplayedEventIfNew(&models.ReplayedEvent{
		Time:        eventTime,
		Payload:     encodePayload(payload),
		PayloadHash: hashPayload(payload),
	})
	return err
}

// LatestReplayedTime returns the time of the newest replayed event, or nil
// when nothing has been replayed yet.
func (s *EventStore) LatestReplayedTime() (*time.Time, error) {
	return s.repo.LatestReplayedTime()
}

// PruneReplayedBefore drops replayed-event rows older than t.
func (s *EventStore) PruneReplayedBefore(t time.Time) error {
	return s.repo.DeleteReplayedEventsBefore(t)
}
