package mailbox

import (
	"context"
	"fmt"
	"time"

	"anoa.com/polychat/internal/entity"
	repo "anoa.com/polychat/internal/modules/mailbox/repository"
	"anoa.com/polychat/internal/realtime"
)

// Notifier drops "new activity from sender" signals into recipients'
// mailboxes.
type Notifier interface {
	Notify(ctx context.Context, senderID, recipientID string) error
}

type notifier struct {
	repo   repo.Repository
	broker realtime.Broker
	now    func() time.Time
}

func NewNotifier(repo repo.Repository, broker realtime.Broker) Notifier {
	return &notifier{repo: repo, broker: broker, now: time.Now}
}

// Notify merge-writes the slot for (recipient, sender) and pushes it to the
// recipient. Repeated notifies before the recipient consumes the slot
// coalesce into one record.
func (n *notifier) Notify(ctx context.Context, senderID, recipientID string) error {
	if senderID == recipientID {
		return nil
	}

	now := n.now()
	record := &entity.DMNotification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Trigger:     now.UnixMilli(),
		Timestamp:   now,
	}
	if err := n.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	change, err := realtime.NewChange(realtime.Added, realtime.NotificationsTopic(recipientID), senderID, record)
	if err != nil {
		return err
	}
	if err := n.broker.Publish(ctx, change); err != nil {
		// the record is stored; the recipient's replay or the redelivery sweep picks it up
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}
