package registry

import (
	"errors"
	"sync"

	"github.com/shuliakovsky/hash-tracker/pkg/peers"
)

const DefaultMaxServers = 10

var (
	ErrAlreadyKnown    = errors.New("server already registered")
	ErrFull            = errors.New("server registry full")
	ErrUnknown         = errors.New("server not registered")
	ErrIndexOutOfRange = errors.New("server index out of range")
)

// Registry is the bounded list of sibling servers this node knows about.
type Registry struct {
	mu      sync.Mutex
	servers *peers.List
}
