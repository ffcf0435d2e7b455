package main

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/api"
	"github.com/shuliakovsky/hash-tracker/pkg/docs"
	"github.com/shuliakovsky/hash-tracker/pkg/health"
	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
)

func registerRoutes(st *state, cfg config, checker *health.Checker, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	adminAPI := api.NewAdmin(st.index, st.servers, st.hub, cfg.AdminKey, logger)
	adminAPI.Probes = checker.Last
	wsAPI := api.NewWS(st.hub, logger)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/swagger.json"),
		httpSwagger.InstanceName("swagger"),
	))
	mux.HandleFunc("/swagger/swagger.json", docs.JSONHandler)

	// Admin routes
	mux.HandleFunc("/admin/hashes", adminAPI.Hashes)
	mux.HandleFunc("/admin/hashes/", adminAPI.Hashes)
	mux.HandleFunc("/admin/servers", adminAPI.ServerList)
	mux.HandleFunc("/admin/servers/", adminAPI.ServerList)
	mux.HandleFunc("/admin/siblings", adminAPI.Siblings)

	// WebSocket
	mux.HandleFunc("/ws/events", wsAPI.ServeWS)

	// Metrics
	metrics.Init()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
