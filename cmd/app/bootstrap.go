package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/mesh"
	"github.com/shuliakovsky/hash-tracker/pkg/netaddr"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
	"github.com/shuliakovsky/hash-tracker/pkg/seeds"
)

// seedResolver answers seed hostname lookups; nil means net.DefaultResolver.
var seedResolver netaddr.Resolver

// joinSeeds registers every reachable seed sibling and announces us to it.
func joinSeeds(ctx context.Context, cfg config, servers *registry.Registry, client *mesh.Client, logger *zap.Logger) {
	f, err := seeds.Load(cfg.SeedsFile, logger)
	if err != nil {
		logger.Warn("seeds_load_error", zap.String("file", cfg.SeedsFile), zap.Error(err))
		return
	}
	self, _ := netaddr.NormalizeIPv6(cfg.NodeIP)

	for _, s := range f.Servers {
		rctx, cancel := context.WithTimeout(ctx, cfg.ResolveTimeout)
		ap, err := netaddr.ResolveHostname(rctx, seedResolver, s.Host, cfg.Port)
		cancel()
		if err != nil {
			logger.Warn("seed_resolve_error", zap.String("host", s.Host), zap.Error(err))
			continue
		}
		addr := ap.Addr().WithZone("").String()
		if addr == self {
			continue
		}
		if err := servers.Register(addr); err != nil {
			logger.Warn("seed_register_error", zap.String("addr", addr), zap.Error(err))
			continue
		}
		if err := client.Join(ctx, addr, cfg.JoinTimeout); err != nil {
			logger.Warn("bootstrap_error", zap.String("addr", addr), zap.Error(err))
			continue
		}
		logger.Info("announce sent", zap.String("server", addr))
	}
}

// leaveMesh tells every sibling we are going away.
func leaveMesh(ctx context.Context, servers *registry.Registry, client *mesh.Client, logger *zap.Logger) {
	for _, addr := range servers.List() {
		if err := client.Leave(ctx, addr); err != nil {
			logger.Warn("leave_error", zap.String("addr", addr), zap.Error(err))
		}
	}
}
