package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_messages_total", Help: "Messages received per type"},
		[]string{"type"},
	)
	Replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_replies_total", Help: "Replies sent per type and status"},
		[]string{"type", "status"},
	)
	Hashes = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tracker_hashes", Help: "Hashes currently indexed"},
	)
	Servers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tracker_servers", Help: "Sibling servers in the registry"},
	)
	RelaySent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_relay_sent_total", Help: "HAVE relays delivered to siblings"},
	)
	RelayFail = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_relay_fail_total", Help: "HAVE relays that failed"},
		[]string{"reason"},
	)
	Connections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tracker_connections", Help: "Open client connections"},
	)
	WSConnected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_ws_connected_total", Help: "Total event stream connections"},
	)
	WSError = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_ws_errors_total", Help: "Event stream errors"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(Messages, Replies, Hashes, Servers)
		prometheus.MustRegister(RelaySent, RelayFail, Connections)
		prometheus.MustRegister(WSConnected, WSError)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
