package api

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var errNoDatabase = errors.New("no database")

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.Cfg.Version,
	})
}

// Ready responde 503 enquanto o banco não responde ao ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ping := h.ping
	if ping == nil {
		ping = h.pingDB
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) pingDB(ctx context.Context) error {
	if h.DB == nil {
		return errNoDatabase
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
