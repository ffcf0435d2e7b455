package tracker

import (
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/events"
	"github.com/shuliakovsky/hash-tracker/pkg/index"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
	"github.com/shuliakovsky/hash-tracker/pkg/secrets"
)

// Relayer forwards a locally accepted PUT to the sibling servers.
type Relayer interface {
	Relay(hash, ip string)
}

// Handler turns one request envelope into one reply envelope, mutating the
// index or the server registry on the way.
type Handler struct {
	Index   *index.Index
	Servers *registry.Registry
	Guard   *secrets.Guard
	Events  *events.Hub
	Relay   Relayer
	Self    string // our own address, echoed in replies
	Logger  *zap.Logger
}

// Result is what the transport does next: write Reply, and stop the server
// after that when Shutdown is set.
type Result struct {
	Reply    []byte
	Shutdown bool
}
