package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/mesh"
	"github.com/shuliakovsky/hash-tracker/pkg/protocol"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
)

type fakeProber struct {
	mu   sync.Mutex
	down map[string]error
}

func (f *fakeProber) Get(_ context.Context, addr, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.down[addr]; ok {
		return "", err
	}
	return "", nil
}

func newTestChecker(p Prober) (*Checker, *registry.Registry) {
	reg := registry.New(0)
	logger, _ := zap.NewDevelopment()
	return New(reg, p, time.Second, logger), reg
}

func TestSweep_AllAlive(t *testing.T) {
	c, reg := newTestChecker(&fakeProber{})
	require.NoError(t, reg.Register("::1"))
	require.NoError(t, reg.Register("::2"))

	res := c.Sweep(context.Background())
	require.Len(t, res, 2)
	for _, r := range res {
		require.True(t, r.Alive, r.Addr)
		require.GreaterOrEqual(t, r.Ping, int64(0))
	}
	require.Equal(t, res, c.Last())
}

func TestSweep_StatusErrorCountsAsAlive(t *testing.T) {
	p := &fakeProber{down: map[string]error{
		"::1": &mesh.StatusError{Type: protocol.TypeGet, Status: protocol.StatusInvalidHash},
	}}
	c, reg := newTestChecker(p)
	require.NoError(t, reg.Register("::1"))

	res := c.Sweep(context.Background())
	require.True(t, res[0].Alive)
}

func TestSweep_DropsAfterRepeatedMisses(t *testing.T) {
	p := &fakeProber{down: map[string]error{"::2": errors.New("connection refused")}}
	c, reg := newTestChecker(p)
	require.NoError(t, reg.Register("::1"))
	require.NoError(t, reg.Register("::2"))

	for i := 1; i < maxMisses; i++ {
		res := c.Sweep(context.Background())
		require.False(t, res[1].Alive)
		require.Equal(t, []string{"::1", "::2"}, reg.List(), "sweep %d", i)
	}
	c.Sweep(context.Background())
	require.Equal(t, []string{"::1"}, reg.List())
}

func TestSweep_RecoveryResetsMisses(t *testing.T) {
	p := &fakeProber{down: map[string]error{"::2": errors.New("timeout")}}
	c, reg := newTestChecker(p)
	require.NoError(t, reg.Register("::2"))

	for i := 1; i < maxMisses; i++ {
		c.Sweep(context.Background())
	}
	p.mu.Lock()
	delete(p.down, "::2")
	p.mu.Unlock()
	c.Sweep(context.Background())

	p.mu.Lock()
	p.down["::2"] = errors.New("timeout")
	p.mu.Unlock()
	c.Sweep(context.Background())
	require.Equal(t, []string{"::2"}, reg.List())
}

func TestLoop_StopsOnCancel(t *testing.T) {
	c, _ := newTestChecker(&fakeProber{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Loop(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
