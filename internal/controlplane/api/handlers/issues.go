package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shareguard/shareguard/internal/controlplane/api/middleware"
	"github.com/shareguard/shareguard/pkg/controlplane/models"
	"github.com/shareguard/shareguard/pkg/controlplane/store"
	"github.com/shareguard/shareguard/pkg/health"
)

// IssueHandler serves HealthAPI.list_issues and HealthAPI.set_issue_status.
type IssueHandler struct {
	store store.IssueStore
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(store store.IssueStore) *IssueHandler {
	return &IssueHandler{store: store}
}

// IssueResponse is the response body for issue endpoints.
type IssueResponse struct {
	ID                 string    `json:"id"`
	Path               string    `json:"path"`
	IssueType          string    `json:"issue_type"`
	Severity           string    `json:"severity"`
	RiskScore          float64   `json:"risk_score"`
	AffectedPrincipals []string  `json:"affected_principals"`
	FirstDetected      time.Time `json:"first_detected"`
	LastSeen           time.Time `json:"last_seen"`
	Status             string    `json:"status"`
}

// SetIssueStatusRequest is the request body for PATCH /api/v1/issues/{id}.
//
// Reason supplements spec.md's closed set_issue_status contract
// (SUPPLEMENTED FEATURES #1): the original records who resolved or ignored
// an issue and why, for audit trails reviewed during compliance checks.
// The request carries no ChangedBy field; SetStatus takes who made the
// change from the caller's token claims.
type SetIssueStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// List handles GET /api/v1/issues. The optional status query parameter
// filters by lifecycle status; omitted or empty matches every status.
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	status := health.Status(r.URL.Query().Get("status"))

	issues, err := h.store.ListIssues(r.Context(), status)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	response := make([]IssueResponse, 0, len(issues))
	for _, issue := range issues {
		resp, err := issueToResponse(issue)
		if err != nil {
			InternalServerError(w, "Failed to decode issue")
			return
		}
		response = append(response, resp)
	}

	WriteJSONOK(w, response)
}

// Get handles GET /api/v1/issues/{id}.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Issues are keyed by (path, issue_type) internally, but exposed to
	// clients by their synthetic ID; the store's GetIssue looks up by
	// (path, issue_type) only, so Get lists every stored issue and
	// returns the one whose ID matches.
	issues, err := h.store.ListIssues(r.Context(), "")
	if err != nil {
		HandleStoreError(w, err)
		return
	}
	for _, issue := range issues {
		if issue.ID != id {
			continue
		}
		resp, err := issueToResponse(issue)
		if err != nil {
			InternalServerError(w, "Failed to decode issue")
			return
		}
		WriteJSONOK(w, resp)
		return
	}
	HandleStoreError(w, models.ErrIssueNotFound)
}

// SetStatus handles PATCH /api/v1/issues/{id}, transitioning an issue's
// lifecycle status and recording who made the change.
func (h *IssueHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetIssueStatusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	status := health.Status(req.Status)
	switch status {
	case health.StatusActive, health.StatusResolved, health.StatusIgnored:
	default:
		BadRequest(w, "Status must be one of: active, resolved, ignored")
		return
	}

	changedBy := ""
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		changedBy = claims.UserID()
	}

	if err := h.store.UpdateIssueStatus(r.Context(), id, status, changedBy, req.Reason); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}

// ListStatusChanges handles GET /api/v1/issues/{id}/history, returning the
// audit trail of status transitions for one issue.
func (h *IssueHandler) ListStatusChanges(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	changes, err := h.store.ListIssueStatusChanges(r.Context(), id)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONOK(w, changes)
}

func issueToResponse(issue *models.Issue) (IssueResponse, error) {
	principals, err := issue.GetAffectedPrincipals()
	if err != nil {
		return IssueResponse{}, err
	}
	return IssueResponse{
		ID:                 issue.ID,
		Path:               issue.Path,
		IssueType:          issue.IssueType,
		Severity:           issue.Severity,
		RiskScore:          issue.RiskScore,
		AffectedPrincipals: principals,
		FirstDetected:      issue.FirstDetected,
		LastSeen:           issue.LastSeen,
		Status:             issue.Status,
	}, nil
}
