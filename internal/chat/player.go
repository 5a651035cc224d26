// Package chat implements the session-and-sector dispatch engine: the
// player registry, the 50x50 sector grid, the request dispatcher, the four
// protocol handlers, and the idle-session sweeper.
package chat

import (
	"sync"
	"time"

	"sectorchat/internal/wire"
)

const (
	// SectorWidthAndHeight is the logical grid's edge length, matching the
	// wire protocol's valid sectorX/sectorY range.
	SectorWidthAndHeight = wire.SectorBound

	// TimeoutCheckInterval is the sweeper's scan period.
	TimeoutCheckInterval = 1000 * time.Millisecond
	// TimeoutLoggedIn is the idle cutoff for an authenticated session.
	TimeoutLoggedIn = 40000 * time.Millisecond
	// TimeoutNotLoggedIn is the idle cutoff for a session that never logged in.
	TimeoutNotLoggedIn = 10000 * time.Millisecond
)

// Player is one connected session's state. Every field past the mutex is
// guarded by it, except SessionID which is immutable for the player's
// lifetime.
type Player struct {
	mu sync.Mutex

	SessionID uint64

	loggedIn   bool
	accountNo  int64
	id         [wire.IDFieldLen]uint16
	nickname   [wire.NicknameFieldLen]uint16
	sessionKey [wire.SessionKeyFieldLen]byte

	inSector bool
	sectorX  uint16
	sectorY  uint16

	lastRecv time.Time
}

// Init resets a Player to its zero logical state for reuse from a pool or
// assignment to a freshly accepted session. Callers must hold no lock on
// the player when calling Init — it is only ever called from OnAccept,
// before the player is inserted into the registry and thus before any
// other goroutine can observe it.
func (p *Player) Init(sessionID uint64) {
	p.SessionID = sessionID
	p.loggedIn = false
	p.accountNo = 0
	p.id = [wire.IDFieldLen]uint16{}
	p.nickname = [wire.NicknameFieldLen]uint16{}
	p.sessionKey = [wire.SessionKeyFieldLen]byte{}
	p.inSector = false
	p.sectorX = 0
	p.sectorY = 0
	p.lastRecv = time.Now()
}

// Lock/Unlock expose the per-player mutex to the engine, which must hold it
// for the duration of any handler touching this player's fields — the
// second level of the lock hierarchy, beneath the registry lock and above
// the sector cell locks.
func (p *Player) Lock()   { p.mu.Lock() }
func (p *Player) Unlock() { p.mu.Unlock() }

// LogIn marks the player authenticated and records its identity fields.
// Caller must hold p's lock.
func (p *Player) LogIn(accountNo int64, id, nickname [wire.IDFieldLen]uint16, sessionKey [wire.SessionKeyFieldLen]byte) {
	p.loggedIn = true
	p.accountNo = accountNo
	p.id = id
	p.nickname = nickname
	p.sessionKey = sessionKey
}

// LoggedIn reports whether LogIn has been called. Caller must hold p's lock.
func (p *Player) LoggedIn() bool { return p.loggedIn }

// AccountNo returns the player's account number. Caller must hold p's lock.
func (p *Player) AccountNo() int64 { return p.accountNo }

// ID returns the player's fixed-width identifier field. Caller must hold p's lock.
func (p *Player) ID() [wire.IDFieldLen]uint16 { return p.id }

// Nickname returns the player's fixed-width nickname field. Caller must hold p's lock.
func (p *Player) Nickname() [wire.NicknameFieldLen]uint16 { return p.nickname }

// InSector reports whether the player currently occupies a sector cell, and
// if so which one. Caller must hold p's lock.
func (p *Player) InSector() (x, y uint16, ok bool) {
	return p.sectorX, p.sectorY, p.inSector
}

// SetSector records the player's current cell. Caller must hold p's lock
// and must keep this in sync with the SectorGrid's own cell membership —
// SetSector does not itself touch the grid.
func (p *Player) SetSector(x, y uint16) {
	p.sectorX = x
	p.sectorY = y
	p.inSector = true
}

// ClearSector marks the player as not occupying any cell. Caller must hold
// p's lock.
func (p *Player) ClearSector() {
	p.inSector = false
	p.sectorX = 0
	p.sectorY = 0
}

// UpdateLastRecv stamps the time of the most recently processed packet.
// Caller must hold p's lock.
func (p *Player) UpdateLastRecv(now time.Time) {
	p.lastRecv = now
}

// IdleFor reports how long it has been since the last received packet.
// Caller must hold p's lock.
func (p *Player) IdleFor(now time.Time) time.Duration {
	return now.Sub(p.lastRecv)
}

// TimedOut reports whether the player has exceeded its role-dependent idle
// timeout: a logged-in session gets TimeoutLoggedIn, an
// unauthenticated one gets the shorter TimeoutNotLoggedIn. Caller must hold
// p's lock.
func (p *Player) TimedOut(now time.Time) bool {
	limit := TimeoutNotLoggedIn
	if p.loggedIn {
		limit = TimeoutLoggedIn
	}
	return p.IdleFor(now) > limit
}
