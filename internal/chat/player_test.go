package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sectorchat/internal/wire"
)

func TestPlayerInitResetsState(t *testing.T) {
	p := &Player{}
	p.Init(42)
	require.Equal(t, uint64(42), p.SessionID)
	require.False(t, p.LoggedIn())
	_, _, inSector := p.InSector()
	require.False(t, inSector)
}

func TestPlayerLogIn(t *testing.T) {
	p := &Player{}
	p.Init(1)

	var id, nick [wire.IDFieldLen]uint16
	var key [wire.SessionKeyFieldLen]byte
	id[0] = 'x'

	p.Lock()
	p.LogIn(100, id, nick, key)
	p.Unlock()

	p.Lock()
	defer p.Unlock()
	require.True(t, p.LoggedIn())
	require.Equal(t, int64(100), p.AccountNo())
	require.Equal(t, uint16('x'), p.ID()[0])
}

func TestPlayerTimedOutIsRoleDependent(t *testing.T) {
	now := time.Now()

	p := &Player{}
	p.Init(1)
	p.Lock()
	p.UpdateLastRecv(now.Add(-(TimeoutNotLoggedIn + time.Second)))
	p.Unlock()

	p.Lock()
	require.True(t, p.TimedOut(now))
	p.Unlock()

	var id, nick [wire.IDFieldLen]uint16
	var key [wire.SessionKeyFieldLen]byte
	p.Lock()
	p.LogIn(1, id, nick, key)
	p.UpdateLastRecv(now.Add(-(TimeoutNotLoggedIn + time.Second)))
	p.Unlock()

	// Same idle duration no longer times out once logged in, since the
	// logged-in threshold (40s) is longer than the not-logged-in one (10s).
	p.Lock()
	require.False(t, p.TimedOut(now))
	p.Unlock()
}
