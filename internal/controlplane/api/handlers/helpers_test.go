package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shareguard/shareguard/pkg/controlplane/models"
)

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"snapshot not found", models.ErrSnapshotNotFound, http.StatusNotFound, "Snapshot not found"},
		{"change record not found", models.ErrChangeRecordNotFound, http.StatusNotFound, "Change record not found"},
		{"issue not found", models.ErrIssueNotFound, http.StatusNotFound, "Issue not found"},
		{"score history not found", models.ErrScoreHistoryNotFound, http.StatusNotFound, "Score history point not found"},
		{"subscription audit not found", models.ErrSubscriptionAuditNotFound, http.StatusNotFound, "Subscription audit record not found"},
		{"duplicate issue", models.ErrDuplicateIssue, http.StatusConflict, "Issue already exists for path and type"},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := MapStoreError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("MapStoreError(%v) status = %d, want %d", tt.err, status, tt.wantStatus)
			}
			if msg != tt.wantMsg {
				t.Errorf("MapStoreError(%v) msg = %q, want %q", tt.err, msg, tt.wantMsg)
			}
		})
	}
}

func TestMapStoreError_WrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), models.ErrIssueNotFound)
	status, msg := MapStoreError(wrapped)
	if status != http.StatusNotFound {
		t.Errorf("MapStoreError(wrapped) status = %d, want %d", status, http.StatusNotFound)
	}
	if msg != "Issue not found" {
		t.Errorf("MapStoreError(wrapped) msg = %q, want %q", msg, "Issue not found")
	}
}

func TestHandleStoreError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
		wantDetail string
	}{
		{
			name:       "not found",
			err:        models.ErrIssueNotFound,
			wantStatus: http.StatusNotFound,
			wantTitle:  "Not Found",
			wantDetail: "Issue not found",
		},
		{
			name:       "conflict",
			err:        models.ErrDuplicateIssue,
			wantStatus: http.StatusConflict,
			wantTitle:  "Conflict",
			wantDetail: "Issue already exists for path and type",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
			wantDetail: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleStoreError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleStoreError status = %d, want %d", w.Code, tt.wantStatus)
			}

			ct := w.Header().Get("Content-Type")
			if ct != ContentTypeProblemJSON {
				t.Errorf("Content-Type = %q, want %q", ct, ContentTypeProblemJSON)
			}

			var p Problem
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatalf("failed to decode problem response: %v", err)
			}
			if p.Title != tt.wantTitle {
				t.Errorf("problem.Title = %q, want %q", p.Title, tt.wantTitle)
			}
			if p.Detail != tt.wantDetail {
				t.Errorf("problem.Detail = %q, want %q", p.Detail, tt.wantDetail)
			}
			if p.Status != tt.wantStatus {
				t.Errorf("problem.Status = %d, want %d", p.Status, tt.wantStatus)
			}
		})
	}
}
