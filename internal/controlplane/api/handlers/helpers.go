package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shareguard/shareguard/pkg/controlplane/models"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// MapStoreError maps a control plane store error to an HTTP status code and message.
//
// This centralizes the error-to-HTTP-status translation that would
// otherwise be duplicated across handlers. It uses errors.Is() to match
// sentinel errors from the models package.
//
// Mapping:
//   - ErrSnapshotNotFound, ErrChangeRecordNotFound, ErrIssueNotFound,
//     ErrScoreHistoryNotFound, ErrSubscriptionAuditNotFound -> 404
//   - ErrDuplicateIssue -> 409
//   - Default -> 500 "Internal server error"
func MapStoreError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrSnapshotNotFound):
		return http.StatusNotFound, "Snapshot not found"
	case errors.Is(err, models.ErrChangeRecordNotFound):
		return http.StatusNotFound, "Change record not found"
	case errors.Is(err, models.ErrIssueNotFound):
		return http.StatusNotFound, "Issue not found"
	case errors.Is(err, models.ErrScoreHistoryNotFound):
		return http.StatusNotFound, "Score history point not found"
	case errors.Is(err, models.ErrSubscriptionAuditNotFound):
		return http.StatusNotFound, "Subscription audit record not found"
	case errors.Is(err, models.ErrDuplicateIssue):
		return http.StatusConflict, "Issue already exists for path and type"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// HandleStoreError maps a store error to an HTTP response and writes it.
//
// This is a convenience function that combines MapStoreError with
// WriteProblem. Handlers can replace their per-error switch blocks with a
// single call:
//
//	if err := h.store.DeleteSnapshot(ctx, path); err != nil {
//	    HandleStoreError(w, err)
//	    return
//	}
func HandleStoreError(w http.ResponseWriter, err error) {
	status, msg := MapStoreError(err)
	WriteProblem(w, status, http.StatusText(status), msg)
}
