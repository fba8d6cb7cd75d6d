package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/health"
)

// HealthRunHandler serves HealthAPI.analyze: triggering and inspecting
// Health Analyzer runs over the watched path set.
type HealthRunHandler struct {
	analyzer *health.Analyzer
}

// NewHealthRunHandler creates a new HealthRunHandler.
func NewHealthRunHandler(analyzer *health.Analyzer) *HealthRunHandler {
	return &HealthRunHandler{analyzer: analyzer}
}

// RunHealthRequest is the request body for POST /api/v1/health/runs.
type RunHealthRequest struct {
	Paths []string `json:"paths"`
}

// IssueSummary is one issue in a HealthRunResponse.
type IssueSummary struct {
	Path               string    `json:"path"`
	IssueType          string    `json:"issue_type"`
	Severity           string    `json:"severity"`
	RiskScore          float64   `json:"risk_score"`
	AffectedPrincipals []string  `json:"affected_principals"`
	FirstDetected      time.Time `json:"first_detected"`
	LastSeen           time.Time `json:"last_seen"`
	Status             string    `json:"status"`
}

// HealthRunResponse is the response body for POST /api/v1/health/runs.
type HealthRunResponse struct {
	ScanID  string         `json:"scan_id"`
	Issues  []IssueSummary `json:"issues"`
	Score   float64        `json:"score"`
	History ScorePoint     `json:"history"`
}

// ScorePoint is one sample in a score history series.
type ScorePoint struct {
	Timestamp   time.Time      `json:"timestamp"`
	Score       float64        `json:"score"`
	TotalIssues int            `json:"total_issues"`
	Counts      map[string]int `json:"counts_by_severity,omitempty"`
}

// Create handles POST /api/v1/health/runs: runs the Health Analyzer over
// the given paths, persisting any newly detected or refreshed issues and
// one score history point.
func (h *HealthRunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RunHealthRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 {
		BadRequest(w, "At least one path is required")
		return
	}

	result, err := h.analyzer.Run(uuid.New().String(), req.Paths)
	if err != nil {
		InternalServerError(w, "Health analysis failed: "+err.Error())
		return
	}

	WriteJSONOK(w, toHealthRunResponse(result))
}

func toHealthRunResponse(result *health.ScanResult) HealthRunResponse {
	issues := make([]IssueSummary, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, IssueSummary{
			Path:               issue.Path,
			IssueType:          string(issue.IssueType),
			Severity:           string(issue.Severity),
			RiskScore:          issue.RiskScore,
			AffectedPrincipals: issue.AffectedPrincipals,
			FirstDetected:      issue.FirstDetected,
			LastSeen:           issue.LastSeen,
			Status:             string(issue.Status),
		})
	}

	return HealthRunResponse{
		ScanID: result.ScanID,
		Issues: issues,
		Score:  result.Score,
		History: ScorePoint{
			Timestamp:   result.History.Timestamp,
			Score:       result.History.Score,
			TotalIssues: result.History.TotalIssues,
			Counts:      severityCountsToStrings(result.History.CountsBySeverity),
		},
	}
}

func severityCountsToStrings(counts map[change.Severity]int) map[string]int {
	if counts == nil {
		return nil
	}
	out := make(map[string]int, len(counts))
	for sev, n := range counts {
		out[string(sev)] = n
	}
	return out
}
