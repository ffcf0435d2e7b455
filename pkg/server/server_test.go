package server

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/events"
	"github.com/shuliakovsky/hash-tracker/pkg/index"
	"github.com/shuliakovsky/hash-tracker/pkg/protocol"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
	"github.com/shuliakovsky/hash-tracker/pkg/secrets"
	"github.com/shuliakovsky/hash-tracker/pkg/tracker"
)

func startServer(t *testing.T, maxConns int) (*Server, string) {
	t.Helper()
	h := tracker.New(index.New(0, 0), registry.New(0), secrets.NewGuard("password123"), events.NewHub("t"), "::100", zap.NewNop())
	s := New(h, time.Second, maxConns, zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, ln.Addr().String()
}

func roundTrip(t *testing.T, conn net.Conn, m protocol.Message) protocol.Reply {
	t.Helper()
	raw, err := protocol.Encode(m)
	require.NoError(t, err)
	_, err = conn.Write(raw)
	require.NoError(t, err)
	resp, err := protocol.ReadMessage(conn)
	require.NoError(t, err)
	r, err := protocol.DecodeReply(resp)
	require.NoError(t, err)
	return r
}

func TestServer_PutGetOverOneConnection(t *testing.T) {
	_, addr := startServer(t, 0)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := roundTrip(t, conn, protocol.Message{Type: protocol.TypePut, Addr: "::1", Data: []byte("abc123")})
	require.Equal(t, protocol.StatusOK, r.Status)
	r = roundTrip(t, conn, protocol.Message{Type: protocol.TypePut, Data: []byte("abc123")})
	require.Equal(t, protocol.StatusOK, r.Status)

	r = roundTrip(t, conn, protocol.Message{Type: protocol.TypeGet, Data: []byte("abc123")})
	require.Equal(t, " ::1 ::ffff:127.0.0.1", r.Body)
}

func TestServer_OversizedFrameGetsErrorThenClose(t *testing.T) {
	_, addr := startServer(t, 0)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	hdr := make([]byte, protocol.HeaderSize)
	hdr[0] = byte(protocol.TypePut)
	binary.BigEndian.PutUint16(hdr[1:3], 5000)
	_, err = conn.Write(hdr)
	require.NoError(t, err)

	resp, err := protocol.ReadMessage(conn)
	require.NoError(t, err)
	r, err := protocol.DecodeReply(resp)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusMalformed, r.Status)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = protocol.ReadMessage(conn)
	require.Error(t, err)
}

func TestServer_ExitSignalsAfterAck(t *testing.T) {
	s, addr := startServer(t, 0)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	r := roundTrip(t, conn, protocol.Message{Type: protocol.TypeExit, Data: []byte("nope")})
	require.Equal(t, protocol.StatusDenied, r.Status)
	select {
	case <-s.ExitRequested():
		t.Fatal("denied exit must not stop the server")
	default:
	}

	r = roundTrip(t, conn, protocol.Message{Type: protocol.TypeExit, Data: []byte("password123")})
	require.Equal(t, protocol.StatusOK, r.Status)
	select {
	case <-s.ExitRequested():
	case <-time.After(time.Second):
		t.Fatal("exit not signalled")
	}
}

func TestServer_ShutdownDrainsIdleConnections(t *testing.T) {
	h := tracker.New(index.New(0, 0), registry.New(0), secrets.NewGuard("x"), nil, "", zap.NewNop())
	s := New(h, time.Minute, 0, zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	roundTrip(t, conn, protocol.Message{Type: protocol.TypeGet, Data: []byte("abc")})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.ErrorIs(t, <-served, ErrServerClosed)
}

func TestLimiter(t *testing.T) {
	l := newLimiter(1)
	require.True(t, l.tryAcquire())
	require.False(t, l.tryAcquire())
	require.Equal(t, 1, l.inUse())
	l.release()
	require.True(t, l.tryAcquire())
}

func TestPeerAddr(t *testing.T) {
	require.Equal(t, "::ffff:10.0.0.1", peerAddr(&net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1}))
	require.Equal(t, "2001:db8::1", peerAddr(&net.TCPAddr{IP: net.ParseIP("2001:db8::1"), Port: 1, Zone: "eth0"}))
}
