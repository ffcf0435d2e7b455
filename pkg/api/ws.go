package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/events"
	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
)

const wsWriteTimeout = 5 * time.Second

type WS struct {
	Hub    *events.Hub
	Logger *zap.Logger
}

func NewWS(hub *events.Hub, logger *zap.Logger) *WS {
	return &WS{Hub: hub, Logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS streams index and registry events as JSON until the client leaves.
func (w *WS) ServeWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.Logger.Warn("ws_upgrade_failed", zap.Error(err))
		metrics.WSError.Inc()
		return
	}
	defer conn.Close()

	evs, cancel := w.Hub.Subscribe()
	defer cancel()
	metrics.WSConnected.Inc()
	w.Logger.Info("ws_events_connected", zap.String("remote", r.RemoteAddr))

	// the client never sends anything meaningful; reading detects close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			w.Logger.Info("ws_events_closed", zap.String("remote", r.RemoteAddr))
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				w.Logger.Warn("ws_client_write_error", zap.Error(err))
				metrics.WSError.Inc()
				return
			}
		}
	}
}
