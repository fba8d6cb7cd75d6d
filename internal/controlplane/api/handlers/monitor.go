package handlers

import (
	"net/http"

	"github.com/shareguard/shareguard/pkg/monitor"
)

// MonitorHandler serves MonitorAPI.start/stop/status.
type MonitorHandler struct {
	loop *monitor.Loop
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(loop *monitor.Loop) *MonitorHandler {
	return &MonitorHandler{loop: loop}
}

// StartMonitorRequest is the request body for POST /api/v1/monitor.
//
// Paths accepts a bulk list in addition to the single-path add case,
// supplementing spec.md's MonitorAPI.start contract (SUPPLEMENTED
// FEATURES #4): the original's setup_test_monitoring.py seeds the watch
// set from a config file listing many paths at once rather than calling
// add() in a loop.
type StartMonitorRequest struct {
	Paths []string `json:"paths"`
}

// StopMonitorRequest is the request body for DELETE /api/v1/monitor.
// An empty Paths list stops the loop entirely; a non-empty one only
// removes those paths from the watch set.
type StopMonitorRequest struct {
	Paths []string `json:"paths,omitempty"`
}

// MonitorStatusResponse is the response body for GET /api/v1/monitor/status.
type MonitorStatusResponse struct {
	WatchedPaths int `json:"watched_paths"`
	ErrorCount   int `json:"error_count"`
}

// Start handles POST /api/v1/monitor.
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartMonitorRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 {
		BadRequest(w, "At least one path is required")
		return
	}

	h.loop.Start(req.Paths...)
	WriteNoContent(w)
}

// Stop handles DELETE /api/v1/monitor.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req StopMonitorRequest
	// The body is optional: an empty body stops the loop entirely.
	if r.ContentLength != 0 && !decodeJSONBody(w, r, &req) {
		return
	}

	if len(req.Paths) == 0 {
		h.loop.Stop()
		WriteNoContent(w)
		return
	}

	for _, p := range req.Paths {
		h.loop.Remove(p)
	}
	WriteNoContent(w)
}

// Status handles GET /api/v1/monitor/status.
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, MonitorStatusResponse{
		WatchedPaths: h.loop.WatchCount(),
		ErrorCount:   h.loop.ErrorCount(),
	})
}
