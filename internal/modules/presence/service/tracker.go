package presence

import (
	"context"
	"time"

	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/logging"
	channel "anoa.com/polychat/internal/modules/channel/service"
	"anoa.com/polychat/internal/realtime"
)

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// Status is the presence of a channel as shown in its header.
type Status struct {
	ChannelID  string     `json:"channelId"`
	Online     bool       `json:"online"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

type Tracker struct {
	users  UserFinder
	broker realtime.Broker
	window time.Duration
	tick   time.Duration
	now    func() time.Time
}

func NewTracker(users UserFinder, broker realtime.Broker, window time.Duration) *Tracker {
	if window <= 0 {
		window = Window
	}
	return &Tracker{
		users:  users,
		broker: broker,
		window: window,
		tick:   15 * time.Second,
		now:    time.Now,
	}
}

// Watch emits the presence of channelID as seen by userID: once up front,
// then whenever it flips. Non-DM channels emit a single online status.
// The returned channel closes when ctx is done.
func (t *Tracker) Watch(ctx context.Context, channelID, userID string) (<-chan Status, error) {
	out := make(chan Status, 1)

	partnerID, ok := channel.PartnerID(channelID, userID)
	if !ok {
		out <- Status{ChannelID: channelID, Online: true}
		close(out)
		return out, nil
	}

	changes, cancel, err := t.broker.Subscribe(ctx, realtime.UserTopic(partnerID))
	if err != nil {
		return nil, err
	}

	log := logging.WithUser("presence", userID)

	var lastActive *time.Time
	if partner, err := t.users.FindByID(ctx, partnerID); err != nil {
		log.Warn().Err(err).Str("partner_id", partnerID).Msg("failed to load partner presence")
	} else {
		lastActive = partner.LastActive
	}

	go func() {
		defer close(out)
		defer cancel()

		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()

		current := t.status(channelID, lastActive)
		if !send(ctx, out, current) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				if change.Kind == realtime.Removed {
					lastActive = nil
				} else {
					var u entity.User
					if err := change.Decode(&u); err != nil {
						log.Warn().Err(err).Msg("ignoring malformed user change")
						continue
					}
					lastActive = u.LastActive
				}
			case <-ticker.C:
			}

			next := t.status(channelID, lastActive)
			if next.Online != current.Online || !sameTime(next.LastActive, current.LastActive) {
				current = next
				if !send(ctx, out, current) {
					return
				}
			}
		}
	}()

	return out, nil
}

func (t *Tracker) status(channelID string, lastActive *time.Time) Status {
	return Status{
		ChannelID:  channelID,
		Online:     isOnlineWithin(lastActive, t.now(), t.window),
		LastActive: lastActive,
	}
}

func send(ctx context.Context, out chan<- Status, s Status) bool {
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
