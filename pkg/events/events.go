package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const subscriberBuffer = 64

type Event struct {
	ID     string    `json:"id"`
	Node   string    `json:"node"`
	Kind   string    `json:"kind"` // put, want, have, delete_hash, delete_peer, server_new, server_deco, server_evict, exit
	Hash   string    `json:"hash,omitempty"`
	Addr   string    `json:"addr,omitempty"`
	Status string    `json:"status,omitempty"`
	Ts     time.Time `json:"ts"`
}

// Hub fans events out to subscribers. Slow subscribers lose events instead of
// stalling the publisher.
type Hub struct {
	node string

	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	dropped atomic.Uint64
}

func NewHub(nodeID string) *Hub {
	return &Hub{node: nodeID, subs: map[chan Event]struct{}{}}
}

func (h *Hub) Publish(kind, hash, addr, status string) {
	if h == nil {
		return
	}
	ev := Event{
		ID:     uuid.NewString(),
		Node:   h.node,
		Kind:   kind,
		Hash:   hash,
		Addr:   addr,
		Status: status,
		Ts:     time.Now().UTC(),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel of events and a func that releases it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Dropped counts events lost to full subscriber buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
