// Package transport is the network layer surrounding the core dispatch
// engine: a TCP acceptor, per-connection read/write pumps, and the
// concrete implementation of the chat.Network contract (SendPacket,
// Disconnect) the dispatch engine sends through.
package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"sectorchat/internal/chat"
	"sectorchat/internal/wire"
)

// Config controls the listener and its per-connection socket options.
type Config struct {
	Addr              string
	TCPNoDelay        bool
	WorkerThreadCount int
}

// Server accepts TCP connections, assigns each a session id, and wires
// decoded frames into a *chat.Dispatcher. It implements chat.Network.
type Server struct {
	cfg    Config
	log    zerolog.Logger
	engine *chat.Engine
	disp   *chat.Dispatcher
	pool   *SendWorkerPool

	listener net.Listener
	nextID   uint64

	mu    sync.RWMutex
	conns map[uint64]*connection

	wg sync.WaitGroup
}

// NewServer builds a Server with no engine or dispatcher yet. The Engine
// and Dispatcher are built afterwards with this Server as their
// chat.Network and bound to it with Attach — the two-phase wiring done in
// cmd/chatserver.
func NewServer(cfg Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:   cfg,
		log:   log,
		conns: make(map[uint64]*connection),
		pool:  NewSendWorkerPool(cfg.WorkerThreadCount, cfg.WorkerThreadCount*64, log),
	}
}

// Attach binds the engine and dispatcher this server dispatches decoded
// frames to. Must be called before Start.
func (s *Server) Attach(engine *chat.Engine, disp *chat.Dispatcher) {
	s.engine = engine
	s.disp = disp
}

// Start opens the listener and begins accepting connections on a
// goroutine, returning once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.pool.Start(ctx)

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Warn().Err(err).Msg("accept failed")
				continue
			}
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(s.cfg.TCPNoDelay)
		}

		sessionID := atomic.AddUint64(&s.nextID, 1)
		c := newConnection(sessionID, conn)

		s.mu.Lock()
		s.conns[sessionID] = c
		s.mu.Unlock()

		s.engine.OnAccept(sessionID)

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			c.writePump(s.log)
		}()
		go func() {
			defer s.wg.Done()
			c.readPump(s.log, s.disp.Dispatch)
			s.release(sessionID)
		}()
	}
}

func (s *Server) release(sessionID uint64) {
	s.mu.Lock()
	delete(s.conns, sessionID)
	s.mu.Unlock()
	s.engine.OnRelease(sessionID)
}

// SendPacket implements chat.Network. It retains p on the caller's behalf
// before handing it to the connection's outbound queue, and is a no-op if
// the session is unknown — callers must tolerate an absent session silently.
func (s *Server) SendPacket(sessionID uint64, p *wire.Packet) {
	s.mu.RLock()
	c, ok := s.conns[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	p.Retain()
	s.pool.Submit(func() {
		c.enqueue(p)
	})
}

// Disconnect implements chat.Network: it closes the session's socket,
// which unblocks its read pump and triggers the release path
// asynchronously, not waiting for the read pump to notice.
func (s *Server) Disconnect(sessionID uint64) {
	s.mu.RLock()
	c, ok := s.conns[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	c.close()
}

// Shutdown stops accepting new connections, closes every live connection,
// and waits for all pumps to exit.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.RLock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}

	s.wg.Wait()
	s.pool.Stop()
}
