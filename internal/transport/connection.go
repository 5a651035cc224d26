package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sectorchat/internal/wire"
)

// frameLengthPrefix is the size, in bytes, of the little-endian uint32
// length prefix that frames every packet on the wire — the "framing
// provided by the network layer, which the wire protocol itself assumes
// but leaves to this layer.
const frameLengthPrefix = 4

// maxFrameSize bounds a single incoming frame so a hostile or corrupt
// length prefix can't force an unbounded read-side allocation.
const maxFrameSize = 1 << 16

var errFrameTooLarge = errors.New("transport: frame exceeds maxFrameSize")

const (
	writeWait      = 10 * time.Second
	readWait       = 60 * time.Second
	sendQueueDepth = 256
)

// connection is the per-session transport state: the raw TCP socket, its
// session id, and a buffered outbound queue drained by the write pump —
// the send-side buffering the core dispatch engine depends on.
type connection struct {
	sessionID uint64
	conn      net.Conn
	send      chan *wire.Packet

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(sessionID uint64, conn net.Conn) *connection {
	return &connection{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan *wire.Packet, sendQueueDepth),
		closed:    make(chan struct{}),
	}
}

// close closes the socket exactly once. Safe to call from the read pump,
// the write pump, or a concurrent Disconnect call.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// readFrame reads one length-prefixed frame and returns it as a fresh
// *wire.Packet with refcount 1, ready for Dispatcher.Dispatch.
func readFrame(r io.Reader) (*wire.Packet, error) {
	var lenBuf [frameLengthPrefix]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, errFrameTooLarge
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return wire.NewPacketFrom(buf), nil
}

// writeFrame writes p's bytes behind a little-endian uint32 length prefix.
func writeFrame(w io.Writer, p *wire.Packet) error {
	body := p.Bytes()
	var lenBuf [frameLengthPrefix]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// readPump reads frames off c's socket and dispatches each to handle
// until the connection errors or closes. It runs on its own goroutine for
// the lifetime of the connection, with no locks held across the call into
// handle — onReceive-style delivery runs with no locks held).
func (c *connection) readPump(log zerolog.Logger, handle func(sessionID uint64, p *wire.Packet)) {
	defer c.close()

	for {
		c.conn.SetReadDeadline(time.Now().Add(readWait))
		p, err := readFrame(c.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Uint64("session", c.sessionID).Err(err).Msg("read pump stopped")
			}
			return
		}
		handle(c.sessionID, p)
	}
}

// writePump drains c.send onto the socket until the channel is closed or
// a write fails.
func (c *connection) writePump(log zerolog.Logger) {
	defer c.close()

	for {
		select {
		case p, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := writeFrame(c.conn, p)
			p.Release()
			if err != nil {
				log.Debug().Uint64("session", c.sessionID).Err(err).Msg("write pump stopped")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// enqueue tries to hand p to the write pump. p's refcount has already
// been incremented by the caller (Server.SendPacket). If the send queue
// is full or the connection is already closed, the packet is dropped and
// its reference released — a slow consumer never blocks the sender,
// safe to call concurrently from any worker goroutine.
func (c *connection) enqueue(p *wire.Packet) {
	select {
	case <-c.closed:
		p.Release()
		return
	default:
	}
	select {
	case c.send <- p:
	default:
		p.Release()
	}
}
