package chat

import "sync"

// Registry is the session-id -> *Player map, guarded by a single RWMutex —
// the outermost level of the lock hierarchy. Callers take
// the write lock for Insert/Erase and the read lock for Lookup and for any
// scan (e.g. the sweeper) that only needs a stable snapshot of membership.
type Registry struct {
	mu      sync.RWMutex
	players map[uint64]*Player
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{players: make(map[uint64]*Player)}
}

// Insert adds a player under its SessionID. Caller must not already hold
// the registry lock.
func (r *Registry) Insert(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.SessionID] = p
}

// Erase removes a session from the registry, returning the removed player
// (or nil if it was not present). Caller must not already hold the
// registry lock.
func (r *Registry) Erase(sessionID uint64) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.players[sessionID]
	delete(r.players, sessionID)
	return p
}

// Lookup returns the player for sessionID under the registry's read lock.
// The lock is released before Lookup returns — callers that go on to read
// or mutate the returned Player should prefer WithPlayer instead, so that
// Erase cannot recycle the Player out from under them.
func (r *Registry) Lookup(sessionID uint64) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[sessionID]
	return p, ok
}

// WithPlayer looks sessionID up and, if present, calls fn with the
// registry's read lock held for fn's entire duration. Erase takes the
// registry's write lock, so it cannot run — and cannot hand the Player back
// to the pool for recycling — until every in-flight WithPlayer call for
// that session has returned. This is what lets a session's handlers run
// concurrently with OnRelease's async teardown without a handler ever
// observing a pooled Player mid-recycle. fn must not call back into any
// Registry method, and must not itself block on the registry lock.
func (r *Registry) WithPlayer(sessionID uint64, fn func(*Player)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[sessionID]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Len returns the current session count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Each calls fn once per registered player under the registry's read lock.
// fn must not call back into any Registry method, and must not attempt to
// acquire the registry lock itself — it runs while the read lock is held.
// This is the primitive the sweeper uses to find timed-out sessions.
func (r *Registry) Each(fn func(*Player)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		fn(p)
	}
}
