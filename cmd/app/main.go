package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/gossip"
	"github.com/shuliakovsky/hash-tracker/pkg/health"
	"github.com/shuliakovsky/hash-tracker/pkg/mesh"
	"github.com/shuliakovsky/hash-tracker/pkg/netaddr"
	"github.com/shuliakovsky/hash-tracker/pkg/server"
	"github.com/shuliakovsky/hash-tracker/pkg/tracker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	PrintVersion()

	cfg := loadConfig()
	nodeID := uuid.NewString()
	logger := initLogger(nodeID)
	defer logger.Sync()

	port, err := netaddr.ValidatePort(cfg.Port)
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	self, err := netaddr.NormalizeIPv6(cfg.NodeIP)
	if err != nil {
		logger.Fatal("config_error", zap.String("NODE_IP", cfg.NodeIP), zap.Error(err))
	}
	logger.Info("Node started", zap.String("nodeIP", self), zap.Uint16("port", port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := initState(cfg, nodeID, logger)
	client := mesh.NewClient(port, self, cfg.MeshTimeout)
	if cfg.MeshSOCKS5 != "" {
		if err := client.UseSOCKS5(cfg.MeshSOCKS5); err != nil {
			logger.Fatal("config_error", zap.String("MESH_SOCKS5", cfg.MeshSOCKS5), zap.Error(err))
		}
		logger.Info("Mesh traffic via SOCKS5", zap.String("proxy", cfg.MeshSOCKS5))
	}
	relayer := gossip.NewRelayer(st.servers, client, 0, logger)
	go relayer.Run(ctx)

	checker := health.New(st.servers, client, cfg.MeshTimeout, logger)
	go checker.Loop(ctx, cfg.HealthInterval)

	handler := tracker.New(st.index, st.servers, st.guard, st.hub, self, logger)
	handler.Relay = relayer

	trackerSrv := server.New(handler, cfg.IdleTimeout, cfg.MaxConns, logger)
	startTracker(cfg.Host, cfg.Port, trackerSrv, logger)
	adminSrv := startAdmin(cfg.AdminHost, cfg.AdminPort, registerRoutes(st, cfg, checker, logger), logger)

	go joinSeeds(ctx, cfg, st.servers, client, logger)

	select {
	case <-ctx.Done():
		logger.Info("signal_received")
	case <-trackerSrv.ExitRequested():
		logger.Info("remote_exit")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := trackerSrv.Shutdown(sctx); err != nil {
		logger.Warn("tracker_shutdown_error", zap.Error(err))
	}
	leaveMesh(sctx, st.servers, client, logger)
	if err := adminSrv.Shutdown(sctx); err != nil {
		logger.Warn("admin_shutdown_error", zap.Error(err))
	}
	logger.Info("stopped", zap.Int("hashes", st.index.Len()), zap.Int("servers", st.servers.Len()))
}
