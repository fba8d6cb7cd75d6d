// Package health runs the six ACL hygiene detectors over snapshots,
// aggregates them into issues and a weighted risk score, and records score
// history over time.
package health

import (
	"time"

	"github.com/shareguard/shareguard/pkg/change"
)

// IssueType identifies which detector produced an Issue.
type IssueType string

const (
	IssueBrokenInheritance    IssueType = "broken_inheritance"
	IssueDirectUserACE        IssueType = "direct_user_ace"
	IssueOrphanedSID          IssueType = "orphaned_sid"
	IssueExcessiveACECount    IssueType = "excessive_ace_count"
	IssueConflictingDenyOrder IssueType = "conflicting_deny_order"
	IssueOverPermissiveGroups IssueType = "over_permissive_groups"
)

// Status is an Issue's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusIgnored  Status = "ignored"
)

// Issue is one detected hygiene problem on one path.
type Issue struct {
	Path               string
	IssueType          IssueType
	Severity           change.Severity
	RiskScore          float64
	AffectedPrincipals []string // full_name, deduplicated
	FirstDetected      time.Time
	LastSeen           time.Time
	Status             Status
}

// Key is the deduplication identity for an active issue: a second
// detection of the same (path, issue_type) while still active refreshes
// LastSeen instead of inserting a duplicate.
type Key struct {
	Path      string
	IssueType IssueType
}

func (i *Issue) Key() Key { return Key{Path: i.Path, IssueType: i.IssueType} }

// ScoreHistoryPoint is one append-only sample of the aggregate score.
type ScoreHistoryPoint struct {
	Timestamp      time.Time
	Score          float64
	TotalIssues    int
	CountsBySeverity map[change.Severity]int
}

// ScanResult is the output of one Health Analyzer run.
type ScanResult struct {
	ScanID   string
	Issues   []Issue
	Score    float64
	History  ScoreHistoryPoint
}
