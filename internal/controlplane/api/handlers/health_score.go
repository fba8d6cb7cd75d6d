package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shareguard/shareguard/pkg/controlplane/models"
	"github.com/shareguard/shareguard/pkg/controlplane/store"
)

// HealthScoreHandler serves HealthAPI.current_score: the latest aggregate
// score plus a trend computed over a lookback window.
//
// The trend field supplements spec.md's closed HealthAPI.current_score
// contract (SUPPLEMENTED FEATURES #2): it was present in the original's
// dashboard trend widget and analyze_permissions.py but dropped from the
// distilled spec. It is purely additive -- current_score's existing
// fields are unchanged.
type HealthScoreHandler struct {
	store store.ScoreHistoryStore
}

// NewHealthScoreHandler creates a new HealthScoreHandler.
func NewHealthScoreHandler(store store.ScoreHistoryStore) *HealthScoreHandler {
	return &HealthScoreHandler{store: store}
}

// DefaultScoreWindow is how far back current_score looks for a trend when
// the caller doesn't specify window_hours.
const DefaultScoreWindow = 24 * time.Hour

// trendStabilityBand is the minimum absolute score delta, as a fraction of
// the earlier sample, for a trend to be reported as improving/degrading
// instead of stable. Below this the change is considered noise.
const trendStabilityBand = 0.05

// ScoreResponse is the response body for GET /api/v1/health/score.
type ScoreResponse struct {
	Score       float64      `json:"score"`
	TotalIssues int          `json:"total_issues"`
	Trend       string       `json:"trend"`
	WindowHours float64      `json:"window_hours"`
	History     []ScorePoint `json:"history,omitempty"`
}

// Get handles GET /api/v1/health/score. The optional window_hours query
// parameter overrides DefaultScoreWindow.
func (h *HealthScoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	window := DefaultScoreWindow
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours <= 0 {
			BadRequest(w, "window_hours must be a positive number")
			return
		}
		window = time.Duration(hours * float64(time.Hour))
	}

	since := time.Now().Add(-window)
	points, err := h.store.ListScoreHistory(r.Context(), since)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONOK(w, ScoreResponse{
		Score:       latestScore(points),
		TotalIssues: latestTotalIssues(points),
		Trend:       computeTrend(points),
		WindowHours: window.Hours(),
		History:     toScorePoints(points),
	})
}

func latestScore(points []*models.ScoreHistoryPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Score
}

func latestTotalIssues(points []*models.ScoreHistoryPoint) int {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].TotalIssues
}

// computeTrend compares the earliest and latest samples in the window.
// A higher score means fewer/less-severe issues (100 is a clean run), so an
// increasing score is "improving" and a decreasing score is "degrading".
func computeTrend(points []*models.ScoreHistoryPoint) string {
	if len(points) < 2 {
		return "stable"
	}

	first := points[0].Score
	last := points[len(points)-1].Score
	if first == 0 {
		if last == 0 {
			return "stable"
		}
		return "improving"
	}

	delta := (last - first) / first
	switch {
	case delta >= trendStabilityBand:
		return "improving"
	case delta <= -trendStabilityBand:
		return "degrading"
	default:
		return "stable"
	}
}

func toScorePoints(points []*models.ScoreHistoryPoint) []ScorePoint {
	out := make([]ScorePoint, 0, len(points))
	for _, p := range points {
		counts, err := p.GetCounts()
		if err != nil {
			counts = nil
		}
		out = append(out, ScorePoint{
			Timestamp:   p.Timestamp,
			Score:       p.Score,
			TotalIssues: p.TotalIssues,
			Counts:      severityCountsToStrings(counts),
		})
	}
	return out
}
