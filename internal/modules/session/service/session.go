package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	channel "anoa.com/polychat/internal/modules/channel/service"
	mailbox "anoa.com/polychat/internal/modules/mailbox/service"
	"anoa.com/polychat/pkg/apperror"
	"gorm.io/gorm"
)

// Session is one user's client-side state on the server.
type Session struct {
	userID string
	state  *channel.State
	users  Users

	refs   int
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) State() *channel.State {
	return s.state
}

func (s *Session) Snapshot() channel.Snapshot {
	return s.state.Snapshot()
}

// Open makes channelID active and clears its unread flag.
func (s *Session) Open(ctx context.Context, channelID string) (channel.Snapshot, error) {
	if channel.IsVirtual(channelID) {
		return s.state.Open(ctx, channelID, channel.VirtualName(channelID)), nil
	}

	partnerID, ok := channel.PartnerID(channelID, s.userID)
	if !ok {
		if channel.IsDM(channelID) {
			return channel.Snapshot{}, apperror.ErrForbidden
		}
		return channel.Snapshot{}, fmt.Errorf("unknown channel %q: %w", channelID, apperror.ErrBadRequest)
	}

	return s.state.Open(ctx, channelID, s.channelName(ctx, channelID, partnerID)), nil
}

// StartDM opens the direct-message channel with partnerID.
func (s *Session) StartDM(ctx context.Context, partnerID string) (channel.Snapshot, error) {
	if partnerID == "" || partnerID == s.userID {
		return channel.Snapshot{}, apperror.Validation("Pick someone else to chat with.")
	}

	partner, err := s.users.FindByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperror.ErrNotFound) {
			return channel.Snapshot{}, fmt.Errorf("user %s: %w", partnerID, apperror.ErrNotFound)
		}
		return channel.Snapshot{}, err
	}

	return s.state.Open(ctx, channel.DMID(s.userID, partner.ID), partner.DisplayName), nil
}

// Delete drops channelID from the list. Find User cannot be removed.
func (s *Session) Delete(ctx context.Context, channelID string) (channel.Snapshot, error) {
	if channelID == channel.UserSearchID {
		return channel.Snapshot{}, apperror.New(http.StatusBadRequest, "Find User cannot be removed.", apperror.ErrBadRequest)
	}
	return s.state.Delete(ctx, channelID), nil
}

// channelName prefers the cached entry so a rename never surfaces mid-session.
func (s *Session) channelName(ctx context.Context, channelID, partnerID string) string {
	for _, c := range s.state.Snapshot().Channels {
		if c.ID == channelID {
			return c.Name
		}
	}
	name, err := s.users.ResolveDisplayName(ctx, partnerID)
	if err != nil || name == "" {
		return mailbox.UnknownUser
	}
	return name
}

func (s *Session) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
