package mailbox

import (
	"context"
	"sync"

	"anoa.com/polychat/internal/logging"
	channel "anoa.com/polychat/internal/modules/channel/service"
	repo "anoa.com/polychat/internal/modules/mailbox/repository"
	"anoa.com/polychat/internal/realtime"
	"github.com/rs/zerolog"
)

// UnknownUser names a sender whose profile could not be loaded.
const UnknownUser = "Unknown User"

type NameResolver interface {
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// Consumer turns one recipient's mailbox into channel upserts.
type Consumer struct {
	repo   repo.Repository
	broker realtime.Broker
	names  NameResolver
	state  *channel.State
	userID string
	log    zerolog.Logger

	wg sync.WaitGroup
}

func NewConsumer(repo repo.Repository, broker realtime.Broker, names NameResolver, state *channel.State, userID string) *Consumer {
	return &Consumer{
		repo:   repo,
		broker: broker,
		names:  names,
		state:  state,
		userID: userID,
		log:    logging.WithUser("mailbox", userID),
	}
}

// Run tails the mailbox until ctx is done. Records already pending when it
// starts are replayed as added. Each change is handled on its own goroutine;
// Run waits for them before returning.
func (c *Consumer) Run(ctx context.Context) error {
	changes, cancel, err := c.broker.Subscribe(ctx, realtime.NotificationsTopic(c.userID))
	if err != nil {
		return err
	}
	defer c.wg.Wait()
	defer cancel()

	if err := c.replay(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to replay pending notifications")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			c.dispatch(ctx, change.DocID, change.Kind)
		}
	}
}

// Drain applies every pending record once and returns after all of them
// were handled. It serves users without a live connection.
func (c *Consumer) Drain(ctx context.Context) error {
	err := c.replay(ctx)
	c.wg.Wait()
	return err
}

func (c *Consumer) replay(ctx context.Context) error {
	pending, err := c.repo.ListByRecipient(ctx, c.userID)
	if err != nil {
		return err
	}
	for _, record := range pending {
		c.dispatch(ctx, record.SenderID, realtime.Added)
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, senderID string, kind realtime.Kind) {
	if kind != realtime.Added && kind != realtime.Modified {
		return
	}
	if senderID == "" || senderID == c.userID {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.handle(ctx, senderID)
	}()
}

// handle applies the upsert before deleting the record, so a failed name
// lookup can never lose a thread.
func (c *Consumer) handle(ctx context.Context, senderID string) {
	dmID := channel.DMID(c.userID, senderID)

	name, err := c.names.ResolveDisplayName(ctx, senderID)
	if err != nil || name == "" {
		if err != nil {
			c.log.Warn().Err(err).Str("sender_id", senderID).Msg("failed to resolve sender name")
		}
		name = UnknownUser
	}

	c.state.Apply(ctx, channel.UpsertEvent{
		ID:              dmID,
		Name:            name,
		IsDM:            true,
		UnreadCandidate: true,
	})

	delCtx := context.WithoutCancel(ctx)
	if err := c.repo.Delete(delCtx, c.userID, senderID); err != nil {
		c.log.Error().Err(err).Str("sender_id", senderID).Msg("failed to delete notification")
		return
	}

	removed := realtime.Change{Kind: realtime.Removed, Topic: realtime.NotificationsTopic(c.userID), DocID: senderID}
	if err := c.broker.Publish(delCtx, removed); err != nil {
		c.log.Debug().Err(err).Msg("failed to publish notification removal")
	}
}
