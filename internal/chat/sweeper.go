package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sectorchat/internal/metrics"
)

// Sweeper periodically scans the registry for idle sessions and
// disconnects them. It never touches a sector's lock — it reads each
// player's idle state under that player's own lock (nested inside the
// registry's shared Each scan) and defers the actual disconnect to the
// Network, outside the scan.
type Sweeper struct {
	registry *Registry
	net      Network
	log      zerolog.Logger
	interval time.Duration
}

// NewSweeper returns a Sweeper using the standard TimeoutCheckInterval.
func NewSweeper(registry *Registry, net Network, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		net:      net,
		log:      log,
		interval: TimeoutCheckInterval,
	}
}

// Run blocks, sweeping every interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	now := time.Now()
	var timedOut []uint64

	s.registry.Each(func(p *Player) {
		p.Lock()
		out := p.TimedOut(now)
		p.Unlock()
		if out {
			timedOut = append(timedOut, p.SessionID)
		}
	})

	for _, sessionID := range timedOut {
		s.log.Debug().Uint64("session", sessionID).Msg("idle timeout, disconnecting")
		metrics.SweeperEvictions.Inc()
		s.net.Disconnect(sessionID)
	}
}
