// Package eventbus publishes a best-effort, fire-and-forget copy of
// session and traffic events to NATS for external analytics/audit
// consumers. It is entirely outside the core's lock hierarchy: every
// method here is called only after the triggering handler has released
// every lock it took, and a slow or unreachable NATS server never blocks
// or affects session processing. This is not chat history persistence —
// there is no replay, no ordering guarantee, and no storage beyond
// whatever the NATS subscriber itself chooses to do.
package eventbus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	SubjectSessionAccept    = "chat.session.accept"
	SubjectSessionRelease   = "chat.session.release"
	SubjectSectorMove       = "chat.sector.move"
	SubjectMessageBroadcast = "chat.message.broadcast"
)

// Publisher implements chat.EventSink over a NATS connection. The zero
// value is a valid, fully inert publisher (every method is a no-op),
// which is what Disabled returns.
type Publisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// Connect dials url and returns a ready Publisher. Callers typically only
// do this when configuration enables the event bus.
func Connect(url string, log zerolog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("sectorchat"))
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, log: log}, nil
}

// Disabled returns a Publisher that drops every event, for when the event
// bus is turned off in configuration.
func Disabled() *Publisher {
	return &Publisher{}
}

// Close closes the underlying NATS connection, if any, without draining it.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

func (p *Publisher) publish(subject string, payload any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("event bus marshal failed")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Debug().Err(err).Str("subject", subject).Msg("event bus publish failed")
	}
}

type sessionEvent struct {
	SessionID uint64    `json:"sessionId"`
	AccountNo int64     `json:"accountNo,omitempty"`
	At        time.Time `json:"at"`
}

type sectorMoveEvent struct {
	AccountNo int64     `json:"accountNo"`
	SectorX   uint16    `json:"sectorX"`
	SectorY   uint16    `json:"sectorY"`
	At        time.Time `json:"at"`
}

type messageBroadcastEvent struct {
	AccountNo  int64     `json:"accountNo"`
	Recipients int       `json:"recipients"`
	Bytes      int       `json:"bytes"`
	At         time.Time `json:"at"`
}

// SessionAccepted implements chat.EventSink.
func (p *Publisher) SessionAccepted(sessionID uint64) {
	p.publish(SubjectSessionAccept, sessionEvent{SessionID: sessionID, At: time.Now()})
}

// SessionReleased implements chat.EventSink.
func (p *Publisher) SessionReleased(sessionID uint64, accountNo int64) {
	p.publish(SubjectSessionRelease, sessionEvent{SessionID: sessionID, AccountNo: accountNo, At: time.Now()})
}

// SectorMoved implements chat.EventSink.
func (p *Publisher) SectorMoved(accountNo int64, x, y uint16) {
	p.publish(SubjectSectorMove, sectorMoveEvent{AccountNo: accountNo, SectorX: x, SectorY: y, At: time.Now()})
}

// MessageBroadcast implements chat.EventSink.
func (p *Publisher) MessageBroadcast(accountNo int64, recipients, bytes int) {
	p.publish(SubjectMessageBroadcast, messageBroadcastEvent{AccountNo: accountNo, Recipients: recipients, Bytes: bytes, At: time.Now()})
}
