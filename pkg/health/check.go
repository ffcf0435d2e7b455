package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/mesh"
	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
)

const (
	// probeHash is looked up on every sibling; any reply proves it is alive.
	probeHash = "0"
	maxMisses = 3
)

// Prober asks a sibling for the holders of a hash.
type Prober interface {
	Get(ctx context.Context, addr, hash string) (string, error)
}

type Result struct {
	Addr  string `json:"addr"`
	Alive bool   `json:"alive"`
	Ping  int64  `json:"pingMs"`
}

// Checker periodically probes registered siblings and drops the ones that
// stop answering.
type Checker struct {
	Timeout time.Duration
	Logger  *zap.Logger

	servers *registry.Registry
	prober  Prober

	mu     sync.Mutex
	misses map[string]int
	last   []Result
}

func New(servers *registry.Registry, prober Prober, timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		Timeout: timeout,
		Logger:  logger,
		servers: servers,
		prober:  prober,
		misses:  make(map[string]int),
	}
}

func (c *Checker) check(ctx context.Context, addr string) (bool, int64) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	start := time.Now()
	if _, err := c.prober.Get(ctx, addr, probeHash); err != nil {
		// a refusal is still an answer
		var se *mesh.StatusError
		if !errors.As(err, &se) {
			return false, 0
		}
	}
	return true, time.Since(start).Milliseconds()
}

// Sweep probes every registered sibling once.
func (c *Checker) Sweep(ctx context.Context) []Result {
	addrs := c.servers.List()
	res := make([]Result, 0, len(addrs))
	for _, addr := range addrs {
		alive, ping := c.check(ctx, addr)
		c.record(addr, alive)
		res = append(res, Result{Addr: addr, Alive: alive, Ping: ping})
	}
	c.mu.Lock()
	c.last = res
	c.mu.Unlock()
	return res
}

func (c *Checker) record(addr string, alive bool) {
	c.mu.Lock()
	if alive {
		delete(c.misses, addr)
		c.mu.Unlock()
		return
	}
	c.misses[addr]++
	n := c.misses[addr]
	if n >= maxMisses {
		delete(c.misses, addr)
	}
	c.mu.Unlock()

	if n < maxMisses {
		c.Logger.Debug("sibling_probe_failed", zap.String("addr", addr), zap.Int("misses", n))
		return
	}
	if err := c.servers.Deregister(addr); err == nil {
		metrics.Servers.Set(float64(c.servers.Len()))
		c.Logger.Warn("sibling_unreachable_dropped", zap.String("addr", addr), zap.Int("misses", n))
	}
}

// Last returns the results of the most recent sweep.
func (c *Checker) Last() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.last...)
}

// Loop sweeps every interval until ctx is done.
func (c *Checker) Loop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sweep(ctx)
		}
	}
}
