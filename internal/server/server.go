package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/protocol"
	"github.com/dmitrijs2005/imagevault/internal/server/blob"
	"github.com/dmitrijs2005/imagevault/internal/server/catalog"
	"github.com/dmitrijs2005/imagevault/internal/server/embedding"
	"github.com/dmitrijs2005/imagevault/internal/server/query"
	"github.com/dmitrijs2005/imagevault/internal/server/session"
)

// TCPServer accepts encrypted catalog connections and runs one Session per
// connection. A failing session never affects the listener or its peers.
type TCPServer struct {
	addr     string
	psk      []byte
	logger   logging.Logger
	store    *catalog.Store
	engine   *query.Engine
	blobs    blob.Store
	embedder embedding.Embedder
	opts     session.Options

	handshakeTimeout time.Duration
	ioTimeout        time.Duration
	maxMessageSize   int64

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	ready chan struct{}
	ln    net.Listener
}

// NewTCPServer wires the server. Ready() closes once the listener is bound.
func NewTCPServer(addr string, psk []byte, logger logging.Logger, store *catalog.Store, engine *query.Engine, blobs blob.Store, embedder embedding.Embedder, opts session.Options, handshakeTimeout, ioTimeout time.Duration, maxMessageSize int64) *TCPServer {
	return &TCPServer{
		addr:             addr,
		psk:              psk,
		logger:           logger,
		store:            store,
		engine:           engine,
		blobs:            blobs,
		embedder:         embedder,
		opts:             opts,
		handshakeTimeout: handshakeTimeout,
		ioTimeout:        ioTimeout,
		maxMessageSize:   maxMessageSize,
		conns:            make(map[net.Conn]struct{}),
		ready:            make(chan struct{}),
	}
}

// Ready is closed once the listener is accepting connections.
func (s *TCPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr reports the bound listener address. Valid only after Ready.
func (s *TCPServer) Addr() net.Addr {
	return s.ln.Addr()
}

// Run listens and serves until ctx is cancelled, then closes the listener
// and every live connection and waits for all sessions to finish.
func (s *TCPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info(ctx, "server ready", "addr", ln.Addr().String())
	close(s.ready)

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn(ctx, "accept failed", "error", err)
			continue
		}

		s.track(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}

	wg.Wait()
	return nil
}

func (s *TCPServer) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *TCPServer) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *TCPServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *TCPServer) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)

	// The channel binds to the reader it is handed, so the deadline wrapper
	// goes on before the handshake. The tighter handshake timeout applies
	// until the key exchange completes.
	tc := &timeoutConn{Conn: conn}
	tc.setTimeout(s.handshakeTimeout)

	ch, err := protocol.ServerHandshake(tc, s.psk)
	if err != nil {
		logger.Warn(ctx, "handshake failed", "error", err)
		return
	}
	tc.setTimeout(s.ioTimeout)

	if s.maxMessageSize > 0 {
		ch.SetMaxMessageSize(uint32(s.maxMessageSize))
	}

	sess := session.New(protocol.NewMessenger(ch), s.store, s.engine, s.blobs, s.embedder, logger, s.opts)
	logger.Info(ctx, "session started")
	if err := sess.Run(ctx); err != nil {
		logger.Warn(ctx, "session ended with fault", "error", err)
		return
	}
	logger.Info(ctx, "session closed")
}

// timeoutConn refreshes the read and write deadlines around every I/O call,
// bounding how long an idle or stalled peer can hold a session goroutine.
// A zero timeout disables the deadlines.
type timeoutConn struct {
	net.Conn
	mu      sync.Mutex
	timeout time.Duration
}

func (c *timeoutConn) setTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

func (c *timeoutConn) deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if err := c.SetReadDeadline(c.deadline()); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if err := c.SetWriteDeadline(c.deadline()); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
