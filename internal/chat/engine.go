package chat

import (
	"time"

	"github.com/rs/zerolog"

	"sectorchat/internal/metrics"
	"sectorchat/internal/wire"
)

// LoginStatus values for CS_CHAT_RES_LOGIN's status byte. The core accepts
// every well-formed LOGIN (authorization beyond the supplied credentials is
// a non-goal), so status is always OK.
const (
	LoginStatusOK byte = 1
)

// Engine is the session-and-sector dispatch engine. It owns no
// transport of its own — it is handed a Network to send through and is
// driven by a Dispatcher decoding frames off that Network's connections.
type Engine struct {
	Registry *Registry
	Sectors  *SectorGrid
	Net      Network
	Events   EventSink
	Log      zerolog.Logger

	pool *PlayerPool
}

// NewEngine wires a ready-to-use Engine. events may be nil.
func NewEngine(net Network, events EventSink, log zerolog.Logger) *Engine {
	return &Engine{
		Registry: NewRegistry(),
		Sectors:  NewSectorGrid(),
		Net:      net,
		Events:   events,
		Log:      log,
		pool:     NewPlayerPool(),
	}
}

func (e *Engine) events() EventSink {
	if e.Events != nil {
		return e.Events
	}
	return noopEventSink{}
}

type noopEventSink struct{}

func (noopEventSink) SessionAccepted(uint64)            {}
func (noopEventSink) SessionReleased(uint64, int64)     {}
func (noopEventSink) SectorMoved(int64, uint16, uint16) {}
func (noopEventSink) MessageBroadcast(int64, int, int)  {}

// OnAccept registers a newly connected session. It allocates a
// Player from the pool, initializes it, and inserts it into the registry
// under the registry's write lock — the outermost level of the lock
// hierarchy. The player is not yet in any sector cell.
func (e *Engine) OnAccept(sessionID uint64) {
	p := e.pool.Get(sessionID)
	e.Registry.Insert(p)
	metrics.SessionsAccepted.Inc()
	e.events().SessionAccepted(sessionID)
}

// OnRelease tears a session down: removes it from its sector cell
// if it occupied one, erases it from the registry, and returns the Player
// to the pool. The registry write lock is taken once; the player's own
// lock is taken to read its final sector/account state before that state
// becomes unreachable.
func (e *Engine) OnRelease(sessionID uint64) {
	p := e.Registry.Erase(sessionID)
	if p == nil {
		return
	}

	p.Lock()
	x, y, inSector := p.InSector()
	accountNo := p.AccountNo()
	p.Unlock()

	if inSector {
		e.Sectors.Erase(x, y, sessionID)
	}

	e.pool.Put(p)
	metrics.SessionsReleased.Inc()
	e.events().SessionReleased(sessionID, accountNo)
}

// HandleLogin processes CS_CHAT_REQ_LOGIN: the player is updated under its
// own lock, nested inside WithPlayer's registry read lock, which excludes
// OnRelease's write-locked teardown/pool-recycle while the Player is in
// use, so a concurrent disconnect can never recycle it out from under the
// handler. The response is sent after both locks are released.
// Authentication beyond accepting the supplied credentials is out of scope
// here — any well-formed LOGIN succeeds.
func (e *Engine) HandleLogin(sessionID uint64, req wire.LoginRequest, now time.Time) {
	found := e.Registry.WithPlayer(sessionID, func(p *Player) {
		p.Lock()
		p.UpdateLastRecv(now)
		p.LogIn(req.AccountNo, req.ID, req.Nickname, req.SessionKey)
		p.Unlock()
	})
	if !found {
		return
	}

	resp := wire.EncodeResLogin(LoginStatusOK, req.AccountNo)
	e.Net.SendPacket(sessionID, resp)
	resp.Release()
}

// HandleSectorMove processes CS_CHAT_REQ_SECTOR_MOVE. An out-of-range
// coordinate is rejected by wire.DecodeSectorMove as a protocol violation
// before the dispatcher ever reaches this handler, so the bounds check here
// is a can't-happen backstop: if it ever fires, the dispatcher's own
// validation was bypassed, an unrecoverable invariant violation. The
// sector update runs under WithPlayer's registry read lock — the outermost
// level of the lock hierarchy — with the player's own lock, then (for a
// differing cell) the sector grid's rank-ordered cell locks, nested inside
// in that order. Three cases follow, matching the original: the player
// isn't in any sector yet (plain insert), the target cell is the player's
// current cell (no-op), or it differs (a two-cell Move under
// ascending-then-descending rank-ordered locking). The event and the
// response are emitted after every lock is released.
func (e *Engine) HandleSectorMove(sessionID uint64, req wire.SectorMoveRequest, now time.Time) {
	if !InBounds(req.SectorX, req.SectorY) {
		Fatalf(e.Log, "sector move out of bounds: session=%d x=%d y=%d", sessionID, req.SectorX, req.SectorY)
		return
	}

	found := e.Registry.WithPlayer(sessionID, func(p *Player) {
		p.Lock()
		p.UpdateLastRecv(now)
		curX, curY, inSector := p.InSector()
		p.SetSector(req.SectorX, req.SectorY)

		switch {
		case !inSector:
			e.Sectors.Insert(req.SectorX, req.SectorY, sessionID)
		case curX == req.SectorX && curY == req.SectorY:
			// same cell, nothing to move
		default:
			e.Sectors.Move(curX, curY, req.SectorX, req.SectorY, sessionID)
		}
		p.Unlock()
	})
	if !found {
		return
	}

	e.events().SectorMoved(req.AccountNo, req.SectorX, req.SectorY)

	resp := wire.EncodeResSectorMove(req.AccountNo, req.SectorX, req.SectorY)
	e.Net.SendPacket(sessionID, resp)
	resp.Release()
}

// HandleMessage processes CS_CHAT_REQ_MESSAGE. The sender's state is read
// and the recipients are collected under WithPlayer's registry read lock.
// The sender must currently occupy a sector cell — asserted, since the
// dispatcher only reaches here after a successful decode and a session
// with no cell never has anything to broadcast to. The outbound packet is
// built exactly once, the 3x3 neighborhood is collected under the grid's
// own (ascending/descending rank-ordered) locking inside
// SectorGrid.Neighborhood, and every send happens after WithPlayer has
// returned, matching the original's "send path sits outside all locks"
// discipline.
func (e *Engine) HandleMessage(sessionID uint64, req wire.MessageRequest, now time.Time) {
	var resp *wire.Packet
	var recipients []uint64
	e.Registry.WithPlayer(sessionID, func(p *Player) {
		p.Lock()
		p.UpdateLastRecv(now)
		x, y, inSector := p.InSector()
		id := p.ID()
		nickname := p.Nickname()
		p.Unlock()

		if !inSector {
			Fatalf(e.Log, "message from session=%d with no sector assigned", sessionID)
			return
		}

		resp = wire.EncodeResMessage(req.AccountNo, id, nickname, req.MessageData)
		recipients = e.Sectors.Neighborhood(x, y)
	})
	if resp == nil {
		return
	}

	// Net.SendPacket (the real implementation, transport.Server.SendPacket)
	// retains resp once per enqueue on the caller's behalf, so the loop
	// itself must not also retain — only the creator's own reference,
	// released once below, is this handler's to manage.
	for _, rid := range recipients {
		e.Net.SendPacket(rid, resp)
	}
	resp.Release()

	metrics.MessagesBroadcast.Inc()
	metrics.BroadcastRecipients.Observe(float64(len(recipients)))
	e.events().MessageBroadcast(req.AccountNo, len(recipients), len(req.MessageData))
}

// HandleHeartbeat processes CS_CHAT_REQ_HEARTBEAT: it only refreshes
// the liveness timestamp, under WithPlayer's registry read lock and the
// player's own lock. No response is sent.
func (e *Engine) HandleHeartbeat(sessionID uint64, now time.Time) {
	e.Registry.WithPlayer(sessionID, func(p *Player) {
		p.Lock()
		p.UpdateLastRecv(now)
		p.Unlock()
	})
}
