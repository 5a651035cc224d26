package chat

import "sectorchat/internal/wire"

// Network is the outbound half of the transport contract a session needs
// from the engine: enqueue a packet for delivery, or force-close a
// session. Implementations must be safe to call from any goroutine and
// must tolerate being called with an already-closed or unknown session id
// — the engine calls both from inside handlers and from the sweeper, after
// all core locks for that call have already been released.
type Network interface {
	SendPacket(sessionID uint64, p *wire.Packet)
	Disconnect(sessionID uint64)
}
