package chat

import (
	"time"

	"github.com/rs/zerolog"

	"sectorchat/internal/metrics"
	"sectorchat/internal/wire"
)

// Dispatcher decodes an inbound frame's type tag, validates its exact
// payload size per type, routes it to the matching Engine handler,
// and disconnects the session on any protocol violation. It holds no
// state of its own beyond the Engine and logger it was built with.
type Dispatcher struct {
	engine *Engine
	log    zerolog.Logger
}

// NewDispatcher returns a Dispatcher bound to engine.
func NewDispatcher(engine *Engine, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{engine: engine, log: log}
}

// Dispatch decodes and routes a single inbound frame for sessionID. The
// packet's reference count is decremented exactly once on exit, regardless
// of which branch handled it — callers must have handed Dispatch a packet
// they are not otherwise holding a reference to beyond this call.
func (d *Dispatcher) Dispatch(sessionID uint64, p *wire.Packet) {
	defer p.Release()

	now := time.Now()

	msgType, err := wire.DecodeType(p)
	if err != nil {
		d.violate(sessionID, err)
		return
	}

	switch msgType {
	case wire.CSChatReqLogin:
		req, err := wire.DecodeLogin(p)
		if err != nil {
			d.violate(sessionID, err)
			return
		}
		defer observeHandlerDuration("login", now)
		d.engine.HandleLogin(sessionID, req, now)

	case wire.CSChatReqSectorMove:
		req, err := wire.DecodeSectorMove(p)
		if err != nil {
			d.violate(sessionID, err)
			return
		}
		defer observeHandlerDuration("sector_move", now)
		d.engine.HandleSectorMove(sessionID, req, now)

	case wire.CSChatReqMessage:
		req, err := wire.DecodeMessage(p)
		if err != nil {
			d.violate(sessionID, err)
			return
		}
		defer observeHandlerDuration("message", now)
		d.engine.HandleMessage(sessionID, req, now)

	case wire.CSChatReqHeartbeat:
		if err := wire.DecodeHeartbeat(p); err != nil {
			d.violate(sessionID, err)
			return
		}
		defer observeHandlerDuration("heartbeat", now)
		d.engine.HandleHeartbeat(sessionID, now)

	default:
		d.violate(sessionID, &wire.ErrProtocolViolation{Reason: "unknown packet type"})
	}
}

func observeHandlerDuration(handler string, start time.Time) {
	metrics.HandlerDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
}

func (d *Dispatcher) violate(sessionID uint64, err error) {
	d.log.Warn().Uint64("session", sessionID).Err(err).Msg("protocol violation, disconnecting")

	reason := "unknown"
	if pv, ok := err.(*wire.ErrProtocolViolation); ok {
		reason = pv.Reason
	}
	metrics.ProtocolViolations.WithLabelValues(reason).Inc()

	d.engine.Net.Disconnect(sessionID)
}
