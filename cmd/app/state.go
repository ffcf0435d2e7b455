package main

import (
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/events"
	"github.com/shuliakovsky/hash-tracker/pkg/index"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
	"github.com/shuliakovsky/hash-tracker/pkg/secrets"
)

// state holds the process-wide aggregates; created once, passed by handle.
type state struct {
	index   *index.Index
	servers *registry.Registry
	guard   *secrets.Guard
	hub     *events.Hub
}

func initState(cfg config, nodeID string, logger *zap.Logger) *state {
	st := &state{
		index:   index.New(cfg.MaxIPs, cfg.MaxHashLen),
		servers: registry.New(cfg.MaxServers),
		guard:   secrets.NewGuard(cfg.AccessCode),
		hub:     events.NewHub(nodeID),
	}
	logger.Info("state_initialized",
		zap.Int("maxServers", st.servers.Cap()),
		zap.Int("maxIPs", st.index.MaxIPs()),
		zap.Int("maxHashLen", cfg.MaxHashLen),
	)
	return st
}
