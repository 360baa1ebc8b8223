package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/brawlstats/statsagg/internal/export"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint. Ready means a run has been published and, when a store is
// configured, the database answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{}

	_, err := export.ReadManifest(h.root)
	checks["published"] = err == nil
	if h.store != nil {
		checks["database"] = h.store.Ping(r.Context()) == nil
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

func (h *Handler) fileError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		h.errorResponse(w, http.StatusNotFound, "Statistics not found")
		return
	}
	h.logger.Errorw("Failed to read statistics file", "path", name, "error", err)
	h.errorResponse(w, http.StatusInternalServerError, "Failed to read statistics")
}
