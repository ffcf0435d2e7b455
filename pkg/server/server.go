package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
	"github.com/shuliakovsky/hash-tracker/pkg/protocol"
	"github.com/shuliakovsky/hash-tracker/pkg/tracker"
)

const (
	defaultIdleTimeout = 30 * time.Second
	defaultMaxConns    = 256
)

var ErrServerClosed = errors.New("server closed")

// Server accepts stream connections and answers one reply per envelope.
type Server struct {
	handler *tracker.Handler
	logger  *zap.Logger
	idle    time.Duration
	lim     *limiter

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup

	exit     chan struct{}
	exitOnce sync.Once
}

func New(h *tracker.Handler, idle time.Duration, maxConns int, logger *zap.Logger) *Server {
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	return &Server{
		handler: h,
		logger:  logger,
		idle:    idle,
		lim:     newLimiter(maxConns),
		conns:   map[net.Conn]struct{}{},
		exit:    make(chan struct{}),
	}
}

// ExitRequested is closed once an authorized EXIT has been acknowledged.
func (s *Server) ExitRequested() <-chan struct{} { return s.exit }

// Serve accepts on ln until Shutdown. It returns ErrServerClosed after a clean stop.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept_timeout", zap.Error(err))
				continue
			}
			return err
		}
		if !s.lim.tryAcquire() {
			s.logger.Warn("connection_refused_limit", zap.String("remote", conn.RemoteAddr().String()))
			_ = conn.Close()
			continue
		}
		if !s.track(conn) {
			s.lim.release()
			_ = conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.lim.release()
	defer s.untrack(conn)
	defer conn.Close()

	metrics.Connections.Inc()
	defer metrics.Connections.Dec()

	from := peerAddr(conn.RemoteAddr())
	for {
		if !s.armRead(conn) {
			return
		}
		raw, err := protocol.ReadMessage(conn)
		if err != nil && !errors.Is(err, protocol.ErrTooLarge) {
			if !errors.Is(err, io.EOF) && !isTimeout(err) && !s.isClosed() {
				s.logger.Debug("connection_read_error", zap.String("from", from), zap.Error(err))
			}
			return
		}

		res := s.handler.Handle(from, raw)
		if _, werr := conn.Write(res.Reply); werr != nil {
			s.logger.Debug("connection_write_error", zap.String("from", from), zap.Error(werr))
			return
		}
		if err != nil {
			// the oversized payload is still in the stream
			return
		}
		if res.Shutdown {
			s.logger.Info("exit_requested", zap.String("from", from))
			s.exitOnce.Do(func() { close(s.exit) })
			return
		}
	}
}

// Shutdown stops accepting, lets in-flight messages finish and waits for
// connections to drain or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	// wake idle readers; a message being handled still gets its reply written
	for c := range s.conns {
		_ = c.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// armRead sets the idle deadline unless Shutdown has begun. Holding mu keeps
// it ordered with the deadline reset done by Shutdown.
func (s *Server) armRead(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_ = c.SetReadDeadline(time.Now().Add(s.idle))
	return true
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// peerAddr renders the remote IP as IPv6 text; IPv4 peers become IPv4-mapped.
func peerAddr(a net.Addr) string {
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return a.String()
	}
	ip := ap.Addr()
	if ip.Is4() {
		ip = netip.AddrFrom16(ip.As16())
	}
	return ip.WithZone("").String()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
