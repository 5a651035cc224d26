package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"sectorchat/internal/wire"
)

func testEngine() (*Engine, *fakeNetwork) {
	net := newFakeNetwork()
	log := zerolog.Nop()
	return NewEngine(net, nil, log), net
}

func loginReq(accountNo int64) wire.LoginRequest {
	var req wire.LoginRequest
	req.AccountNo = accountNo
	req.ID[0] = 'a'
	req.Nickname[0] = 'A'
	return req
}

// TestLoginThenMove is scenario 1.
func TestLoginThenMove(t *testing.T) {
	e, net := testEngine()
	e.OnAccept(7)

	e.HandleLogin(7, loginReq(100), time.Now())
	sent := net.sentTo(7)
	require.Len(t, sent, 1)

	typ, err := wire.DecodeType(sent[0])
	require.NoError(t, err)
	require.Equal(t, wire.CSChatResLogin, typ)
	require.Equal(t, int32(1), sent[0].RefCount(), "fakeNetwork's one retain should be the only outstanding reference")

	e.HandleSectorMove(7, wire.SectorMoveRequest{AccountNo: 100, SectorX: 5, SectorY: 5}, time.Now())
	sent = net.sentTo(7)
	require.Len(t, sent, 2)

	typ, err = wire.DecodeType(sent[1])
	require.NoError(t, err)
	require.Equal(t, wire.CSChatResSectorMove, typ)
	require.Equal(t, int32(1), sent[1].RefCount())

	p, ok := e.Registry.Lookup(7)
	require.True(t, ok)
	p.Lock()
	x, y, inSector := p.InSector()
	p.Unlock()
	require.True(t, inSector)
	require.Equal(t, uint16(5), x)
	require.Equal(t, uint16(5), y)
	require.Equal(t, 1, e.Sectors.CellSize(5, 5))
}

// TestBroadcastToNeighborhood is scenario 2: a 3x3 block fully populated,
// center sender, all nine recipients (including itself) get the message,
// a tenth session outside the neighborhood gets nothing.
func TestBroadcastToNeighborhood(t *testing.T) {
	e, net := testEngine()

	sessionAt := map[uint64][2]uint16{}
	id := uint64(1)
	for y := uint16(4); y <= 6; y++ {
		for x := uint16(4); x <= 6; x++ {
			e.OnAccept(id)
			e.HandleLogin(id, loginReq(int64(id)), time.Now())
			e.HandleSectorMove(id, wire.SectorMoveRequest{AccountNo: int64(id), SectorX: x, SectorY: y}, time.Now())
			sessionAt[id] = [2]uint16{x, y}
			id++
		}
	}

	e.OnAccept(10)
	e.HandleLogin(10, loginReq(10), time.Now())
	e.HandleSectorMove(10, wire.SectorMoveRequest{AccountNo: 10, SectorX: 8, SectorY: 8}, time.Now())

	// session 5 (account 5) sits at center (5,5); find its session id.
	var centerSession uint64
	for sid, coord := range sessionAt {
		if coord[0] == 5 && coord[1] == 5 {
			centerSession = sid
		}
	}
	require.NotZero(t, centerSession)

	// Every session already holds its LOGIN and SECTOR_MOVE responses; only
	// what arrives after the broadcast is counted below.
	before := map[uint64]int{}
	for sid := range sessionAt {
		before[sid] = len(net.sentTo(sid))
	}
	before10 := len(net.sentTo(10))

	e.HandleMessage(centerSession, wire.MessageRequest{AccountNo: int64(centerSession), MessageData: []byte("hi!\x00")}, time.Now())

	for sid := range sessionAt {
		recvd := net.sentTo(sid)[before[sid]:]
		require.Len(t, recvd, 1, "session %d should receive exactly one broadcast", sid)
		require.Equal(t, int32(len(sessionAt)), recvd[0].RefCount(), "the one shared packet should hold exactly one reference per recipient once the handler returns")
	}
	require.Empty(t, net.sentTo(10)[before10:], "session outside neighborhood should receive nothing")
}

// TestEdgeCellClipsNeighborhood is scenario 3.
func TestEdgeCellClipsNeighborhood(t *testing.T) {
	e, _ := testEngine()

	place := func(sessionID uint64, x, y uint16) {
		e.OnAccept(sessionID)
		e.HandleLogin(sessionID, loginReq(int64(sessionID)), time.Now())
		e.HandleSectorMove(sessionID, wire.SectorMoveRequest{AccountNo: int64(sessionID), SectorX: x, SectorY: y}, time.Now())
	}
	place(1, 0, 0)
	place(2, 1, 0)
	place(3, 0, 1)
	place(4, 1, 1)

	ids := e.Sectors.Neighborhood(0, 0)
	require.Len(t, ids, 4)
}

// TestConcurrentMoveAndMessageNoDeadlock is scenario 4.
func TestConcurrentMoveAndMessageNoDeadlock(t *testing.T) {
	e, _ := testEngine()

	e.OnAccept(1)
	e.HandleLogin(1, loginReq(1), time.Now())
	e.HandleSectorMove(1, wire.SectorMoveRequest{AccountNo: 1, SectorX: 10, SectorY: 10}, time.Now())

	e.OnAccept(2)
	e.HandleLogin(2, loginReq(2), time.Now())
	e.HandleSectorMove(2, wire.SectorMoveRequest{AccountNo: 2, SectorX: 9, SectorY: 10}, time.Now())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.HandleMessage(1, wire.MessageRequest{AccountNo: 1, MessageData: []byte("hi")}, time.Now())
	}()
	go func() {
		defer wg.Done()
		e.HandleSectorMove(2, wire.SectorMoveRequest{AccountNo: 2, SectorX: 30, SectorY: 30}, time.Now())
	}()
	wg.Wait()
}

// TestTimeoutEviction is scenario 5.
func TestTimeoutEviction(t *testing.T) {
	e, net := testEngine()
	e.OnAccept(3)
	e.HandleLogin(3, loginReq(3), time.Now())

	p, ok := e.Registry.Lookup(3)
	require.True(t, ok)
	p.Lock()
	p.UpdateLastRecv(time.Now().Add(-(TimeoutLoggedIn + time.Second)))
	p.Unlock()

	sweeper := NewSweeper(e.Registry, net, zerolog.Nop())
	sweeper.sweep()
	require.True(t, net.disconnected(3))

	e.HandleSectorMove(3, wire.SectorMoveRequest{AccountNo: 3, SectorX: 1, SectorY: 1}, time.Now())
	e.OnRelease(3)
	_, stillPresent := e.Registry.Lookup(3)
	require.False(t, stillPresent)
	require.Equal(t, 0, e.Sectors.CellSize(1, 1))
}

// TestProtocolViolationDisconnects is scenario 6, exercised through the
// Dispatcher rather than the Engine directly.
func TestProtocolViolationDisconnects(t *testing.T) {
	e, net := testEngine()
	e.OnAccept(4)

	d := NewDispatcher(e, zerolog.Nop())

	bad := wire.NewPacket()
	bad.PutUint16(uint16(wire.CSChatReqLogin))
	bad.PutInt64(100) // missing remaining LOGIN fields

	d.Dispatch(4, bad)

	require.Empty(t, net.sentTo(4))
	require.True(t, net.disconnected(4))
}

// TestOutOfRangeSectorMoveDisconnects checks that an out-of-range
// sectorX/sectorY is caught by the dispatcher's decode step — a
// disconnect, never a process-ending fatal.
func TestOutOfRangeSectorMoveDisconnects(t *testing.T) {
	e, net := testEngine()
	e.OnAccept(5)
	e.HandleLogin(5, loginReq(5), time.Now())

	d := NewDispatcher(e, zerolog.Nop())

	bad := wire.NewPacket()
	bad.PutUint16(uint16(wire.CSChatReqSectorMove))
	bad.PutInt64(5)
	bad.PutUint16(60) // out of range: grid is 0..49
	bad.PutUint16(0)

	d.Dispatch(5, bad)

	require.True(t, net.disconnected(5))
}

func TestHeartbeatUpdatesLastRecvOnly(t *testing.T) {
	e, net := testEngine()
	e.OnAccept(1)

	before := time.Now().Add(-time.Minute)
	p, _ := e.Registry.Lookup(1)
	p.Lock()
	p.UpdateLastRecv(before)
	p.Unlock()

	e.HandleHeartbeat(1, time.Now())

	p.Lock()
	idle := p.IdleFor(time.Now())
	p.Unlock()
	require.Less(t, idle, time.Second)
	require.Empty(t, net.sentTo(1))
}
