package presence

import (
	"context"
	"time"

	"anoa.com/polychat/internal/logging"
)

type Heartbeater interface {
	Heartbeat(ctx context.Context, userID string) error
}

// RunHeartbeat beats for userID immediately and then every interval until
// ctx is done. Failed beats are logged and retried on the next tick.
func RunHeartbeat(ctx context.Context, hb Heartbeater, userID string, interval time.Duration) {
	log := logging.WithUser("heartbeat", userID)

	beat := func() {
		if err := hb.Heartbeat(ctx, userID); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("heartbeat failed")
		}
	}

	beat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}
