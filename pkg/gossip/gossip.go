package gossip

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/mesh"
	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
)

func NewRelayer(servers *registry.Registry, sender Sender, queueSize int, logger *zap.Logger) *Relayer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Relayer{
		servers:  servers,
		sender:   sender,
		logger:   logger,
		queue:    make(chan announcement, queueSize),
		failures: map[string]int{},
	}
}

// Relay queues an announcement. It never blocks the message handler; when the
// queue is full the announcement is dropped.
func (r *Relayer) Relay(hash, ip string) {
	select {
	case r.queue <- announcement{Hash: hash, IP: ip}:
	default:
		metrics.RelayFail.WithLabelValues("queue_full").Inc()
		r.logger.Warn("gossip_queue_full", zap.String("hash", hash))
	}
}

// Run drains the queue until ctx is done.
func (r *Relayer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-r.queue:
			r.fanOut(ctx, a)
		}
	}
}

func (r *Relayer) fanOut(ctx context.Context, a announcement) {
	for _, addr := range r.servers.List() {
		if err := r.sender.Relay(ctx, addr, a.Hash, a.IP); err != nil {
			if errors.Is(err, mesh.ErrNotSent) {
				// local problem; the sibling is not to blame
				metrics.RelayFail.WithLabelValues("encode").Inc()
				r.logger.Warn("gossip_not_sent", zap.String("target", addr), zap.Int("hashLen", len(a.Hash)), zap.Error(err))
				continue
			}
			metrics.RelayFail.WithLabelValues("send").Inc()
			r.logger.Warn("gossip send failed", zap.String("target", addr), zap.String("hash", a.Hash), zap.Error(err))
			r.onFailure(addr)
			continue
		}
		metrics.RelaySent.Inc()
		r.onSuccess(addr)
		r.logger.Debug("Gossip sent", zap.String("to", addr), zap.String("hash", a.Hash))
	}
}

// onFailure drops a sibling after maxFailures consecutive failed relays.
func (r *Relayer) onFailure(addr string) {
	r.mu.Lock()
	r.failures[addr]++
	n := r.failures[addr]
	if n >= maxFailures {
		delete(r.failures, addr)
	}
	r.mu.Unlock()

	if n >= maxFailures {
		if err := r.servers.Deregister(addr); err == nil {
			r.logger.Warn("sibling_dropped", zap.String("addr", addr), zap.Int("failures", n))
		}
	}
}

func (r *Relayer) onSuccess(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, addr)
}

// Pending reports queued announcements.
func (r *Relayer) Pending() int { return len(r.queue) }
