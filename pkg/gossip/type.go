package gossip

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/registry"
)

const (
	defaultQueueSize = 256
	maxFailures      = 2
)

// Sender delivers one HAVE to one sibling.
type Sender interface {
	Relay(ctx context.Context, addr, hash, ip string) error
}

type announcement struct {
	Hash string
	IP   string
}

// Relayer pushes locally accepted PUTs to every registered sibling.
type Relayer struct {
	servers *registry.Registry
	sender  Sender
	logger  *zap.Logger
	queue   chan announcement

	mu       sync.Mutex
	failures map[string]int // key: sibling address
}
