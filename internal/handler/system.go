package handler

import (
	"net/http"

	"github.com/guildsight/guildsight/internal/events"
	"github.com/guildsight/guildsight/internal/store"
)

// SystemHandler serves the unauthenticated health endpoints.
type SystemHandler struct {
	control *store.Store
	events  *events.Store
	version string
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(control *store.Store, ev *events.Store, version string) *SystemHandler {
	return &SystemHandler{control: control, events: ev, version: version}
}

// Health reports process liveness. It touches no storage.
// GET /healthz
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports whether both databases are reachable.
// GET /readyz
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"credentials": "ok",
		"events":      "ok",
	}
	ready := true

	if err := h.control.Ping(r.Context()); err != nil {
		checks["credentials"] = err.Error()
		ready = false
	}
	if err := h.events.Ping(r.Context()); err != nil {
		checks["events"] = err.Error()
		ready = false
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}
