package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/events"
	"github.com/shuliakovsky/hash-tracker/pkg/health"
	"github.com/shuliakovsky/hash-tracker/pkg/index"
	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
	"github.com/shuliakovsky/hash-tracker/pkg/netaddr"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
)

type Admin struct {
	Index    *index.Index
	Servers  *registry.Registry
	Hub      *events.Hub
	AdminKey string
	Logger   *zap.Logger
	// Probes reports the latest sibling sweep; nil when probing is off.
	Probes func() []health.Result
}

func NewAdmin(x *index.Index, reg *registry.Registry, hub *events.Hub, key string, logger *zap.Logger) *Admin {
	return &Admin{Index: x, Servers: reg, Hub: hub, AdminKey: key, Logger: logger}
}

func (a *Admin) auth(w http.ResponseWriter, r *http.Request) bool {
	got := r.Header.Get("x-admin-key")
	if a.AdminKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.AdminKey)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// GET    /admin/hashes
// DELETE /admin/hashes/{hash}
// DELETE /admin/hashes/{hash}/{wanters|havers}/{ip}
func (a *Admin) Hashes(w http.ResponseWriter, r *http.Request) {
	if !a.auth(w, r) {
		return
	}
	parts := splitPath(strings.TrimPrefix(r.URL.Path, "/admin/hashes"))
	switch {
	case r.Method == http.MethodGet && len(parts) == 0:
		writeJSON(w, http.StatusOK, a.Index.Dump())
	case r.Method == http.MethodDelete && len(parts) == 1:
		a.deleteHash(w, parts[0])
	case r.Method == http.MethodDelete && len(parts) == 3:
		a.deletePeer(w, parts[0], parts[1], parts[2])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (a *Admin) deleteHash(w http.ResponseWriter, hash string) {
	if err := a.Index.DeleteHash(hash); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.Hashes.Set(float64(a.Index.Len()))
	a.Hub.Publish("delete_hash", hash, "", "ok")
	a.Logger.Info("admin_delete_hash", zap.String("hash", hash))
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "hash": hash})
}

func (a *Admin) deletePeer(w http.ResponseWriter, hash, list, rawIP string) {
	var which index.Which
	switch list {
	case "wanters":
		which = index.Wanters
	case "havers":
		which = index.Havers
	default:
		http.Error(w, "list must be wanters or havers", http.StatusBadRequest)
		return
	}
	ip, err := netaddr.NormalizeIPv6(rawIP)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.Index.DeletePeer(hash, ip, which); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.Hashes.Set(float64(a.Index.Len()))
	a.Hub.Publish("delete_peer", hash, ip, "ok")
	a.Logger.Info("admin_delete_peer", zap.String("hash", hash), zap.String("list", which.String()), zap.String("ip", ip))
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "hash": hash, "list": which.String(), "ip": ip})
}

// GET    /admin/servers
// DELETE /admin/servers/{index}
func (a *Admin) ServerList(w http.ResponseWriter, r *http.Request) {
	if !a.auth(w, r) {
		return
	}
	parts := splitPath(strings.TrimPrefix(r.URL.Path, "/admin/servers"))
	switch {
	case r.Method == http.MethodGet && len(parts) == 0:
		writeJSON(w, http.StatusOK, map[string]any{"servers": a.Servers.List(), "capacity": a.Servers.Cap()})
	case r.Method == http.MethodDelete && len(parts) == 1:
		i, err := strconv.Atoi(parts[0])
		if err != nil {
			http.Error(w, "bad index", http.StatusBadRequest)
			return
		}
		addr, err := a.Servers.Evict(i)
		if errors.Is(err, registry.ErrIndexOutOfRange) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		metrics.Servers.Set(float64(a.Servers.Len()))
		a.Hub.Publish("server_evict", "", addr, "ok")
		a.Logger.Info("admin_evict_server", zap.Int("index", i), zap.String("addr", addr))
		writeJSON(w, http.StatusOK, map[string]any{"status": "evicted", "addr": addr})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /admin/siblings
func (a *Admin) Siblings(w http.ResponseWriter, r *http.Request) {
	if !a.auth(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res := []health.Result{}
	if a.Probes != nil {
		res = append(res, a.Probes()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"siblings": res})
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
