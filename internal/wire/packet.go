// Package wire implements the chat relay's length-prefixed binary protocol:
// a typed push/pull byte buffer and the seven packet encodings of the
// client/server handshake, move, message, and heartbeat exchange.
package wire

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Packet is a reference-counted byte buffer with typed accessors, the Go
// analogue of the original server's Serializer. A freshly built packet
// (NewPacket, or one of the EncodeRes* constructors) starts with a
// reference count of 1, held by its creator. Every enqueue to a session
// increments the count; every delivery completion, and the handler's own
// exit, decrements it. The buffer itself is never pooled across decodes —
// each inbound frame and each outbound response is its own allocation —
// but the refcount lets a single outbound packet fan out to many
// recipients without ambiguity about who is responsible for it.
type Packet struct {
	buf      []byte
	off      int
	refCount int32
}

// NewPacket returns an empty packet with refcount 1.
func NewPacket() *Packet {
	return &Packet{refCount: 1}
}

// NewPacketFrom wraps an already-decoded frame (refcount 1). The offset
// starts past nothing; callers read fields off the front with the Get*
// methods in wire order.
func NewPacketFrom(buf []byte) *Packet {
	return &Packet{buf: buf, refCount: 1}
}

// Retain increments the packet's reference count. Called once per enqueue.
func (p *Packet) Retain() {
	atomic.AddInt32(&p.refCount, 1)
}

// Release decrements the reference count. It does not free anything
// explicitly — the Go garbage collector reclaims the backing array once
// the last reference drops — but callers still must call Release exactly
// once per Retain (and once for the packet's creation) so that refcount
// bugs are observable via RefCount() in tests.
func (p *Packet) Release() {
	atomic.AddInt32(&p.refCount, -1)
}

// RefCount returns the current reference count, for diagnostics and tests.
func (p *Packet) RefCount() int32 {
	return atomic.LoadInt32(&p.refCount)
}

// Bytes returns the packet's full encoded payload.
func (p *Packet) Bytes() []byte {
	return p.buf
}

// Len returns the number of unread bytes remaining past the read offset.
func (p *Packet) Len() int {
	return len(p.buf) - p.off
}

// UseSize returns the total encoded size of the packet, mirroring the
// original Serializer::GetUseSize() used for payload-size validation.
func (p *Packet) UseSize() int {
	return len(p.buf)
}

func (p *Packet) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

func (p *Packet) PutInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	p.buf = append(p.buf, b[:]...)
}

func (p *Packet) PutByte(v byte) {
	p.buf = append(p.buf, v)
}

func (p *Packet) PutBytes(v []byte) {
	p.buf = append(p.buf, v...)
}

// PutFixedUTF16 encodes exactly n UTF-16 code units (little-endian),
// truncating or zero-padding s to fit — the wire analogue of a fixed
// WCHAR[n] field such as Player.id or Player.nickname.
func (p *Packet) PutFixedUTF16(s []uint16, n int) {
	for i := 0; i < n; i++ {
		var v uint16
		if i < len(s) {
			v = s[i]
		}
		p.PutUint16(v)
	}
}

var errShortRead = fmt.Errorf("wire: short read")

func (p *Packet) GetUint16() (uint16, error) {
	if p.Len() < 2 {
		return 0, errShortRead
	}
	v := binary.LittleEndian.Uint16(p.buf[p.off : p.off+2])
	p.off += 2
	return v, nil
}

func (p *Packet) GetInt64() (int64, error) {
	if p.Len() < 8 {
		return 0, errShortRead
	}
	v := binary.LittleEndian.Uint64(p.buf[p.off : p.off+8])
	p.off += 8
	return int64(v), nil
}

func (p *Packet) GetBytes(n int) ([]byte, error) {
	if p.Len() < n {
		return nil, errShortRead
	}
	v := make([]byte, n)
	copy(v, p.buf[p.off:p.off+n])
	p.off += n
	return v, nil
}

// GetFixedUTF16 reads exactly n UTF-16 code units.
func (p *Packet) GetFixedUTF16(n int) ([]uint16, error) {
	if p.Len() < n*2 {
		return nil, errShortRead
	}
	v := make([]uint16, n)
	for i := 0; i < n; i++ {
		v[i] = binary.LittleEndian.Uint16(p.buf[p.off : p.off+2])
		p.off += 2
	}
	return v, nil
}
