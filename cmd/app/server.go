package main

import (
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/api"
	"github.com/shuliakovsky/hash-tracker/pkg/server"
)

func startAdmin(host, port string, mux *http.ServeMux, logger *zap.Logger) *http.Server {
	addr := net.JoinHostPort(host, port)
	srv := &http.Server{Addr: addr, Handler: api.WithAccessLog("admin", logger, mux)}
	logger.Info("Admin listening", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Admin server down", zap.Error(err))
		}
	}()
	return srv
}

func startTracker(host, port string, srv *server.Server, logger *zap.Logger) {
	addr := net.JoinHostPort(host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal("Tracker listen failed", zap.String("addr", addr), zap.Error(err))
	}
	logger.Info("Listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, server.ErrServerClosed) {
			logger.Fatal("Tracker down", zap.Error(err))
		}
	}()
}
