package registry

import (
	"errors"

	"github.com/shuliakovsky/hash-tracker/pkg/peers"
)

func New(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxServers
	}
	return &Registry{servers: peers.NewBounded(max)}
}

func (r *Registry) Register(addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch err := r.servers.Insert(addr); {
	case errors.Is(err, peers.ErrAlreadyPresent):
		return ErrAlreadyKnown
	case errors.Is(err, peers.ErrCapacityExceeded):
		return ErrFull
	default:
		return err
	}
}

func (r *Registry) Deregister(addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.servers.Remove(addr); err != nil {
		return ErrUnknown
	}
	return nil
}

// Evict removes the server at position i. Used by operators, not by the protocol.
func (r *Registry) Evict(i int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.servers.All()
	if i < 0 || i >= len(all) {
		return "", ErrIndexOutOfRange
	}
	if err := r.servers.RemoveAt(i); err != nil {
		return "", ErrIndexOutOfRange
	}
	return all[i], nil
}

func (r *Registry) Contains(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.servers.Contains(addr)
}

func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.servers.All()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.servers.Len()
}

func (r *Registry) Cap() int { return r.servers.Limit() }
