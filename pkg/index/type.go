package index

import (
	"errors"
	"sync"

	"github.com/shuliakovsky/hash-tracker/pkg/netaddr"
	"github.com/shuliakovsky/hash-tracker/pkg/peers"
	"github.com/shuliakovsky/hash-tracker/pkg/protocol"
)

const (
	DefaultMaxHashLen = 1000
	DefaultMaxIPs     = 10
)

// MaxRenderedIPs is the most addresses a GET reply can carry: each takes up to
// MaxAddrLen bytes plus a separator, after the status byte.
const MaxRenderedIPs = (protocol.MaxDataSize - 1) / (netaddr.MaxAddrLen + 1)

var ErrInvalidHash = errors.New("invalid hash")

// Which selects one of the two peer lists attached to a hash.
type Which int

const (
	Wanters Which = iota
	Havers
)

func (w Which) String() string {
	if w == Wanters {
		return "wanters"
	}
	return "havers"
}

type entry struct {
	want *peers.List
	have *peers.List
}

// Entry is a read-only snapshot of one hash, as returned by Dump.
type Entry struct {
	Hash    string   `json:"hash"`
	Wanters []string `json:"wanters"`
	Havers  []string `json:"havers"`
}

type Index struct {
	mu         sync.RWMutex
	entries    map[string]*entry // key: hash
	maxIPs     int
	maxHashLen int
}
