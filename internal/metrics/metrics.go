// Package metrics defines and serves the relay's Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SessionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_accepted_total",
		Help: "Total sessions accepted.",
	})
	SessionsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_released_total",
		Help: "Total sessions released.",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_sessions_active",
		Help: "Current session count in the registry.",
	})
	SectorOccupied = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_sectors_occupied",
		Help: "Number of sector cells with at least one player.",
	})

	ProtocolViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_protocol_violations_total",
		Help: "Disconnects caused by a malformed or out-of-range packet, by reason.",
	}, []string{"reason"})

	MessagesBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_broadcast_total",
		Help: "Total MESSAGE requests successfully fanned out.",
	})
	BroadcastRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_broadcast_recipients",
		Help:    "Recipient count per broadcast.",
		Buckets: []float64{0, 1, 2, 4, 8, 9, 16, 32},
	})

	SweeperEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sweeper_evictions_total",
		Help: "Sessions disconnected by the idle timeout sweeper.",
	})

	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_handler_duration_seconds",
		Help:    "Time spent inside a request handler, by packet type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
)

// Server runs a small HTTP server exposing /metrics.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer builds (but does not start) a metrics server bound to addr.
func NewServer(addr string, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		log:        log,
	}
}

// Start begins serving in a background goroutine. Bind failures are
// logged, not returned — metrics are diagnostic, not load-bearing, so a
// failure here must never prevent the chat server itself from starting.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SampleRegistrySize periodically samples a registry-size callback into
// SessionsActive until ctx is canceled. Sampling runs outside any chat
// package lock: the callback itself is expected to take the registry's
// read lock only for the duration of one Len() call.
func SampleRegistrySize(ctx context.Context, interval time.Duration, registryLen func() int, occupiedCells func() int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			SessionsActive.Set(float64(registryLen()))
			SectorOccupied.Set(float64(occupiedCells()))
		}
	}
}
