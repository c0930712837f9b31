package mailbox

import (
	"context"
	"fmt"
	"time"

	"anoa.com/polychat/internal/logging"
	repo "anoa.com/polychat/internal/modules/mailbox/repository"
	"anoa.com/polychat/internal/realtime"
)

const redeliveryBatch = 500

// RedeliveryJob re-pushes records that outlived MailboxStaleAfter, which
// happens when a consumer's delete failed or no session was listening.
// Consumers treat the repeat as an idempotent upsert.
type RedeliveryJob struct {
	repo       repo.Repository
	broker     realtime.Broker
	schedule   string
	staleAfter time.Duration
	now        func() time.Time
}

func NewRedeliveryJob(repo repo.Repository, broker realtime.Broker, schedule string, staleAfter time.Duration) *RedeliveryJob {
	return &RedeliveryJob{
		repo:       repo,
		broker:     broker,
		schedule:   schedule,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (j *RedeliveryJob) GetName() string     { return "mailbox-redelivery" }
func (j *RedeliveryJob) GetSchedule() string { return j.schedule }

func (j *RedeliveryJob) Execute(ctx context.Context) error {
	stale, err := j.repo.ListStale(ctx, j.now().Add(-j.staleAfter), redeliveryBatch)
	if err != nil {
		return fmt.Errorf("failed to list stale notifications: %w", err)
	}

	log := logging.Component("mailbox")
	failed := 0
	for _, record := range stale {
		change, err := realtime.NewChange(realtime.Modified, realtime.NotificationsTopic(record.RecipientID), record.SenderID, record)
		if err != nil {
			failed++
			continue
		}
		if err := j.broker.Publish(ctx, change); err != nil {
			log.Warn().Err(err).Str("recipient_id", record.RecipientID).Msg("failed to redeliver notification")
			failed++
		}
	}

	if len(stale) > 0 {
		log.Info().Int("records", len(stale)).Int("failed", failed).Msg("redelivered stale notifications")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d redeliveries failed", failed, len(stale))
	}
	return nil
}
