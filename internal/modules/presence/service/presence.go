package presence

import (
	"time"

	channel "anoa.com/polychat/internal/modules/channel/service"
)

// Window is how long a heartbeat keeps a user online.
const Window = 300_000 * time.Millisecond

// IsOnline reports whether lastActive is within Window of now.
func IsOnline(lastActive *time.Time, now time.Time) bool {
	return isOnlineWithin(lastActive, now, Window)
}

func isOnlineWithin(lastActive *time.Time, now time.Time, window time.Duration) bool {
	if lastActive == nil {
		return false
	}
	return now.Sub(*lastActive) < window
}

// ChannelOnline is presence at the channel level. Only DM channels carry
// real presence; every other id is reported online.
func ChannelOnline(channelID, userID string, partnerLastActive *time.Time, now time.Time) bool {
	if _, ok := channel.PartnerID(channelID, userID); !ok {
		return true
	}
	return IsOnline(partnerLastActive, now)
}
