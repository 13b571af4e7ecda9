package cooldown

import (
	"context"
	"time"
)

// RunSweeper deletes expired durable records every interval until ctx is done.
// Run it from main or a job manager; it blocks.
func RunSweeper(ctx context.Context, m *Manager, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.log.Error().Err(err).Msg("Error clearing expired cooldowns")
				continue
			}
			if n > 0 {
				m.log.Debug().Int("deleted", n).Msg("Expired cooldowns cleared")
			}
		}
	}
}
