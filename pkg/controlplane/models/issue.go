package models

import (
	"encoding/json"
	"time"

	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/health"
)

// Issue is the durable counterpart to health.Issue. health.Issue has no
// identity field of its own -- its dedup key is (Path, IssueType) -- so
// this model carries a synthetic UUID primary key plus a unique index over
// the pair the health package actually keys on.
type Issue struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	Path               string          `gorm:"not null;size:4096;uniqueIndex:idx_issue_path_type" json:"path"`
	IssueType          string          `gorm:"not null;size:64;uniqueIndex:idx_issue_path_type" json:"issue_type"`
	Severity           string          `gorm:"not null;size:16" json:"severity"`
	RiskScore          float64         `gorm:"not null" json:"risk_score"`
	AffectedPrincipals string          `gorm:"type:text" json:"-"`
	FirstDetected      time.Time       `gorm:"not null" json:"first_detected"`
	LastSeen           time.Time       `gorm:"not null;index" json:"last_seen"`
	Status             string          `gorm:"not null;size:16;index" json:"status"`

	ParsedPrincipals []string `gorm:"-" json:"affected_principals,omitempty"`
}

// TableName returns the table name for Issue.
func (Issue) TableName() string {
	return "issues"
}

// GetAffectedPrincipals returns the decoded principal list, decoding the
// stored JSON blob on first use.
func (i *Issue) GetAffectedPrincipals() ([]string, error) {
	if i.ParsedPrincipals != nil {
		return i.ParsedPrincipals, nil
	}
	if i.AffectedPrincipals == "" {
		return nil, nil
	}
	var principals []string
	if err := json.Unmarshal([]byte(i.AffectedPrincipals), &principals); err != nil {
		return nil, err
	}
	i.ParsedPrincipals = principals
	return principals, nil
}

// SetAffectedPrincipals encodes principals into the stored JSON blob.
func (i *Issue) SetAffectedPrincipals(principals []string) error {
	data, err := json.Marshal(principals)
	if err != nil {
		return err
	}
	i.AffectedPrincipals = string(data)
	i.ParsedPrincipals = principals
	return nil
}

// FromHealthIssue builds a persisted Issue from a health.Issue, preserving
// any existing ID (callers upserting an already-persisted issue should pass
// it through) or generating a fresh one via NewIssueID when id is empty.
func FromHealthIssue(id string, issue health.Issue) (*Issue, error) {
	m := &Issue{
		ID:            id,
		Path:          issue.Path,
		IssueType:     string(issue.IssueType),
		Severity:      string(issue.Severity),
		RiskScore:     issue.RiskScore,
		FirstDetected: issue.FirstDetected,
		LastSeen:      issue.LastSeen,
		Status:        string(issue.Status),
	}
	if err := m.SetAffectedPrincipals(issue.AffectedPrincipals); err != nil {
		return nil, err
	}
	return m, nil
}

// ToHealthIssue converts the persisted model back to a health.Issue.
func (i *Issue) ToHealthIssue() (health.Issue, error) {
	principals, err := i.GetAffectedPrincipals()
	if err != nil {
		return health.Issue{}, err
	}
	return health.Issue{
		Path:               i.Path,
		IssueType:          health.IssueType(i.IssueType),
		Severity:           change.Severity(i.Severity),
		RiskScore:          i.RiskScore,
		AffectedPrincipals: principals,
		FirstDetected:      i.FirstDetected,
		LastSeen:           i.LastSeen,
		Status:             health.Status(i.Status),
	}, nil
}
