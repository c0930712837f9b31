package message

import (
	"fmt"

	channel "anoa.com/polychat/internal/modules/channel/service"
	"anoa.com/polychat/pkg/apperror"
)

// ChannelKey maps a channel id as the client sees it to the message
// collection it reads and writes. The AI channel is private to each user.
func ChannelKey(channelID, userID string) (string, error) {
	if channelID == channel.AIID {
		return AIKey(userID), nil
	}
	if channel.IsDM(channelID) {
		if _, ok := channel.PartnerID(channelID, userID); !ok {
			return "", apperror.ErrForbidden
		}
		return channelID, nil
	}
	return "", fmt.Errorf("channel %q has no messages: %w", channelID, apperror.ErrBadRequest)
}

// AIKey is the storage key of userID's private tutor conversation.
func AIKey(userID string) string {
	return "ai:" + userID
}
