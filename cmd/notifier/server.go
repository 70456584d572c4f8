package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rickgao/lexflow-notify/internal/connection"
	"github.com/rickgao/lexflow-notify/internal/metrics"
	"github.com/rickgao/lexflow-notify/internal/notification"
	"github.com/rickgao/lexflow-notify/internal/version"
)

const debugListLimit = 100

type connStats interface {
	Stats() connection.ManagerStats
}

type pinger interface {
	Ping(ctx context.Context) error
}

type serverDeps struct {
	conn        connStats
	store       *notification.Store
	db          pinger // nil when the archive is disabled
	metrics     *metrics.Metrics
	metricsPath string
	instanceID  string
}

// newServerMux serves health, debug, and metrics endpoints.
func newServerMux(d serverDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Instance   string         `json:"instance"`
			Version    version.Info   `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Instance:   d.instanceID,
			Version:    version.Get(),
			Components: make(map[string]any),
		}

		// Connection: terminal needs an explicit reconnect, anything short of open is degraded
		stats := d.conn.Stats()
		health.Components["connection"] = stats
		switch stats.State {
		case connection.StateOpen.String():
		case connection.StateTerminal.String():
			health.Status = "unhealthy"
		default:
			health.Status = "degraded"
		}

		health.Components["store"] = map[string]int{
			"count":  d.store.Len(),
			"unread": d.store.UnreadCount(),
		}

		if d.db != nil {
			if err := d.db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/notifications", func(w http.ResponseWriter, r *http.Request) {
		entries := d.store.List()
		total := len(entries)

		limit := debugListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, debugListLimit)
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":         total,
			"unread":        d.store.UnreadCount(),
			"showing":       len(entries),
			"notifications": entries,
		})
	})

	if d.metrics != nil {
		path := d.metricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, d.metrics.Handler())
	}

	return mux
}
