package models

import (
	"encoding/json"
	"time"

	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/health"
)

// ScoreHistoryPoint is the durable counterpart to health.ScoreHistoryPoint:
// one append-only sample of the aggregate health score (§4.6).
type ScoreHistoryPoint struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	Score       float64   `gorm:"not null" json:"score"`
	TotalIssues int       `gorm:"not null" json:"total_issues"`

	// Counts is the JSON-encoded map[change.Severity]int.
	Counts string `gorm:"type:text" json:"-"`

	ParsedCounts map[change.Severity]int `gorm:"-" json:"counts_by_severity,omitempty"`
}

// TableName returns the table name for ScoreHistoryPoint.
func (ScoreHistoryPoint) TableName() string {
	return "score_history_points"
}

// GetCounts returns the decoded severity-count map.
func (p *ScoreHistoryPoint) GetCounts() (map[change.Severity]int, error) {
	if p.ParsedCounts != nil {
		return p.ParsedCounts, nil
	}
	if p.Counts == "" {
		return nil, nil
	}
	var counts map[change.Severity]int
	if err := json.Unmarshal([]byte(p.Counts), &counts); err != nil {
		return nil, err
	}
	p.ParsedCounts = counts
	return counts, nil
}

// SetCounts encodes counts into the stored JSON blob.
func (p *ScoreHistoryPoint) SetCounts(counts map[change.Severity]int) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	p.Counts = string(data)
	p.ParsedCounts = counts
	return nil
}

// FromHealthScorePoint builds a persisted ScoreHistoryPoint from a
// health.ScoreHistoryPoint, assigning it id.
func FromHealthScorePoint(id string, point health.ScoreHistoryPoint) (*ScoreHistoryPoint, error) {
	m := &ScoreHistoryPoint{
		ID:          id,
		Timestamp:   point.Timestamp,
		Score:       point.Score,
		TotalIssues: point.TotalIssues,
	}
	if err := m.SetCounts(point.CountsBySeverity); err != nil {
		return nil, err
	}
	return m, nil
}

// ToHealthScorePoint converts the persisted model back to a
// health.ScoreHistoryPoint.
func (p *ScoreHistoryPoint) ToHealthScorePoint() (health.ScoreHistoryPoint, error) {
	counts, err := p.GetCounts()
	if err != nil {
		return health.ScoreHistoryPoint{}, err
	}
	return health.ScoreHistoryPoint{
		Timestamp:        p.Timestamp,
		Score:            p.Score,
		TotalIssues:      p.TotalIssues,
		CountsBySeverity: counts,
	}, nil
}
