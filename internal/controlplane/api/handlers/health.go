package handlers

import (
	"net/http"

	"github.com/shareguard/shareguard/pkg/controlplane/store"
)

// SystemHealthHandler serves the liveness/readiness endpoints ops tooling
// polls, distinct from the ACL-hygiene health surface in health_score.go
// and issues.go.
type SystemHealthHandler struct {
	store store.SystemHealthStore
}

// NewSystemHealthHandler creates a new SystemHealthHandler.
func NewSystemHealthHandler(store store.SystemHealthStore) *SystemHealthHandler {
	return &SystemHealthHandler{store: store}
}

// Live handles GET /health. Always returns 200 once the process is
// serving requests -- it never touches the database.
func (h *SystemHealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(nil))
}

// Ready handles GET /health/ready, failing if the control plane store is
// unreachable.
func (h *SystemHealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Healthcheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(nil))
}

// Stores handles GET /health/stores, reporting each backing store's
// reachability individually so operators can tell a database outage from a
// transport problem.
func (h *SystemHealthHandler) Stores(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"controlplane": "healthy"}
	overall := http.StatusOK

	if err := h.store.Healthcheck(r.Context()); err != nil {
		status["controlplane"] = err.Error()
		overall = http.StatusServiceUnavailable
	}

	if overall == http.StatusOK {
		writeJSON(w, overall, healthyResponse(status))
	} else {
		writeJSON(w, overall, unhealthyResponseWithData(status))
	}
}
