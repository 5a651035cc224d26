package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketPutGetRoundTrip(t *testing.T) {
	p := NewPacket()
	p.PutUint16(42)
	p.PutInt64(-7)
	p.PutByte(9)
	p.PutBytes([]byte{1, 2, 3})
	p.PutFixedUTF16([]uint16{'h', 'i'}, 5)

	require.Equal(t, 2+8+1+3+10, p.UseSize())

	u, err := p.GetUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(42), u)

	i, err := p.GetInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-7), i)
}

func TestPacketFixedUTF16TruncatesAndPads(t *testing.T) {
	p := NewPacket()
	p.PutFixedUTF16([]uint16{'a', 'b', 'c'}, 2)
	p.PutFixedUTF16([]uint16{'x'}, 3)

	out, err := p.GetFixedUTF16(2)
	require.NoError(t, err)
	require.Equal(t, []uint16{'a', 'b'}, out)

	out, err = p.GetFixedUTF16(3)
	require.NoError(t, err)
	require.Equal(t, []uint16{'x', 0, 0}, out)
}

func TestPacketShortReadErrors(t *testing.T) {
	p := NewPacket()
	p.PutByte(1)

	_, err := p.GetUint16()
	require.Error(t, err)

	_, err = p.GetInt64()
	require.Error(t, err)

	_, err = p.GetBytes(10)
	require.Error(t, err)
}

func TestPacketRefCounting(t *testing.T) {
	p := NewPacket()
	require.EqualValues(t, 1, p.RefCount())

	p.Retain()
	require.EqualValues(t, 2, p.RefCount())

	p.Release()
	p.Release()
	require.EqualValues(t, 0, p.RefCount())
}
