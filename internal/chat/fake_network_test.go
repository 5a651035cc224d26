package chat

import (
	"sync"

	"sectorchat/internal/wire"
)

// fakeNetwork records every SendPacket/Disconnect call for assertions,
// standing in for internal/transport in engine/dispatcher tests.
type fakeNetwork struct {
	mu       sync.Mutex
	sent     map[uint64][]*wire.Packet
	disconns []uint64
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{sent: make(map[uint64][]*wire.Packet)}
}

// SendPacket mirrors transport.Server.SendPacket's refcount contract: it
// retains p once on the caller's behalf before recording it, so tests can
// rely on the same creator/enqueue discipline the real transport enforces.
func (f *fakeNetwork) SendPacket(sessionID uint64, p *wire.Packet) {
	p.Retain()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[sessionID] = append(f.sent[sessionID], p)
}

func (f *fakeNetwork) Disconnect(sessionID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconns = append(f.disconns, sessionID)
}

func (f *fakeNetwork) sentTo(sessionID uint64) []*wire.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[sessionID]
}

func (f *fakeNetwork) disconnected(sessionID uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.disconns {
		if id == sessionID {
			return true
		}
	}
	return false
}
