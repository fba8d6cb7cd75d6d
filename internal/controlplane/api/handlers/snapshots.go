package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/controlplane/store"
)

// SnapshotHandler serves the durable Snapshot Store's recovery/history
// surface. The hot scan/monitor path talks to the in-memory pkg/store
// directly; this handler is for inspection and manual correction.
type SnapshotHandler struct {
	store store.SnapshotStore
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(store store.SnapshotStore) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// SnapshotResponse is the response body for snapshot endpoints.
type SnapshotResponse struct {
	Path      string        `json:"path"`
	ScannedAt time.Time     `json:"scanned_at"`
	StoredAt  time.Time     `json:"stored_at"`
	IsStale   bool          `json:"is_stale"`
	Checksum  string        `json:"checksum"`
	Snapshot  *acl.Snapshot `json:"snapshot,omitempty"`
}

// PutSnapshotRequest is the request body for PUT /api/v1/snapshots/{path...}.
type PutSnapshotRequest struct {
	Snapshot *acl.Snapshot `json:"snapshot"`
	FSMtime  time.Time     `json:"fs_mtime,omitempty"`
}

// Get handles GET /api/v1/snapshots/{path...}.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		BadRequest(w, "Path is required")
		return
	}

	snap, err := h.store.GetSnapshot(r.Context(), path)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	parsed, err := snap.GetSnapshot()
	if err != nil {
		InternalServerError(w, "Failed to decode stored snapshot")
		return
	}

	WriteJSONOK(w, SnapshotResponse{
		Path:      snap.Path,
		ScannedAt: snap.ScannedAt,
		StoredAt:  snap.StoredAt,
		IsStale:   snap.IsStale,
		Checksum:  snap.Checksum,
		Snapshot:  parsed,
	})
}

// Put handles PUT /api/v1/snapshots/{path...}, for manually seeding or
// correcting a stored snapshot (e.g. restoring from a backup of the
// control plane database).
func (h *SnapshotHandler) Put(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		BadRequest(w, "Path is required")
		return
	}

	var req PutSnapshotRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Snapshot == nil {
		BadRequest(w, "Snapshot is required")
		return
	}

	if err := h.store.PutSnapshot(r.Context(), path, req.Snapshot, req.FSMtime); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}

// List handles GET /api/v1/snapshots.
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.store.ListSnapshots(r.Context())
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	response := make([]SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		response = append(response, SnapshotResponse{
			Path:      snap.Path,
			ScannedAt: snap.ScannedAt,
			StoredAt:  snap.StoredAt,
			IsStale:   snap.IsStale,
			Checksum:  snap.Checksum,
		})
	}

	WriteJSONOK(w, response)
}
