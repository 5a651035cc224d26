package chat

import "sync"

// PlayerPool recycles Player records across session churn, grounded on the
// teacher's sync.Pool-backed ConnectionPool. Pooling a Player avoids an
// allocation and GC pressure on every connect/disconnect under high churn,
// at the cost of callers discipline: Put must only be called once a player
// has been fully unlinked from the Registry and SectorGrid.
type PlayerPool struct {
	pool sync.Pool
}

// NewPlayerPool returns a ready-to-use pool.
func NewPlayerPool() *PlayerPool {
	return &PlayerPool{
		pool: sync.Pool{
			New: func() any { return &Player{} },
		},
	}
}

// Get returns a Player initialized for sessionID. It is either a reused,
// zeroed record or a freshly allocated one.
func (pp *PlayerPool) Get(sessionID uint64) *Player {
	p := pp.pool.Get().(*Player)
	p.Init(sessionID)
	return p
}

// Put returns a Player to the pool. The caller must guarantee p is no
// longer reachable from the Registry or any SectorGrid cell.
func (pp *PlayerPool) Put(p *Player) {
	pp.pool.Put(p)
}
