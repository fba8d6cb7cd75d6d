package health

import (
	"math"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/metrics"
)

// minSignificantRiskScore is the generic filter applied to every detector's
// raw risk score, regardless of type.
const minSignificantRiskScore = 2.0

// minReportableACECount is the absolute floor for excessive_ace_count to be
// reportable, independent of the configured (and possibly lower) trigger
// threshold.
const minReportableACECount = 15

// sumBaseWeightsMax is the fixed denominator of the aggregate score
// formula: the sum of the six detectors' raw (count-independent) base
// weights {15,10,5,20,25,25}.
const sumBaseWeightsMax = 100.0

// SnapshotProvider supplies the latest snapshot for a path, scanning and
// persisting one if none exists yet.
type SnapshotProvider interface {
	SnapshotFor(path string) (*acl.Snapshot, error)
}

// IssueTracker owns the active-issue table the analyzer deduplicates
// against and mutates.
type IssueTracker interface {
	// Get returns the existing issue for key, if one with status=active
	// exists.
	Get(key Key) (*Issue, bool)

	// Upsert inserts a new issue, or refreshes LastSeen and mutable fields
	// on an existing active one.
	Upsert(issue Issue) Issue
}

// ScoreRecorder appends one ScoreHistoryPoint.
type ScoreRecorder interface {
	Record(point ScoreHistoryPoint)
}

// Analyzer runs the Health Analyzer contract (§4.6).
type Analyzer struct {
	snapshots SnapshotProvider
	issues    IssueTracker
	history   ScoreRecorder
	config    DetectorConfig
	metrics   *metrics.Metrics
}

// NewAnalyzer constructs an Analyzer from its dependencies.
func NewAnalyzer(snapshots SnapshotProvider, issues IssueTracker, history ScoreRecorder, cfg DetectorConfig) *Analyzer {
	return &Analyzer{snapshots: snapshots, issues: issues, history: history, config: cfg}
}

// WithMetrics attaches m so every Run records the resulting score and
// active-issue counts. A nil m (the default) disables instrumentation.
func (a *Analyzer) WithMetrics(m *metrics.Metrics) *Analyzer {
	a.metrics = m
	return a
}

// Run executes the analyzer over paths, producing a ScanResult: issues
// (inserted or refreshed), the aggregate score, and an appended history
// point.
func (a *Analyzer) Run(scanID string, paths []string) (*ScanResult, error) {
	var allIssues []Issue
	now := time.Now()

	for _, p := range paths {
		snap, err := a.snapshots.SnapshotFor(p)
		if err != nil {
			continue // one path's failure never aborts the run
		}

		for _, d := range a.detectionsFor(snap) {
			if d.riskScore() < minSignificantRiskScore {
				continue
			}
			if d.issueType == IssueDirectUserACE && allExcluded(d.affected, a.config) {
				continue
			}
			if d.issueType == IssueOrphanedSID && len(d.affected) < 1 {
				continue
			}
			if d.issueType == IssueExcessiveACECount && len(snap.ACEs) < minReportableACECount {
				continue
			}

			issue := Issue{
				Path:               p,
				IssueType:          d.issueType,
				Severity:           d.severity,
				RiskScore:          d.riskScore(),
				AffectedPrincipals: d.affected,
				FirstDetected:      now,
				LastSeen:           now,
				Status:             StatusActive,
			}
			allIssues = append(allIssues, a.issues.Upsert(issue))
		}
	}

	score := aggregateScore(allIssues)
	point := ScoreHistoryPoint{
		Timestamp:        now,
		Score:            score,
		TotalIssues:      len(allIssues),
		CountsBySeverity: countBySeverity(allIssues),
	}
	a.history.Record(point)

	for _, p := range paths {
		a.metrics.SetHealthScore(p, score)
	}
	for issueType, count := range countByType(allIssues) {
		a.metrics.SetIssuesActive(string(issueType), count)
	}

	return &ScanResult{ScanID: scanID, Issues: allIssues, Score: score, History: point}, nil
}

func countByType(issues []Issue) map[IssueType]int {
	out := map[IssueType]int{}
	for _, i := range issues {
		if i.Status != StatusActive {
			continue
		}
		out[i.IssueType]++
	}
	return out
}

func (a *Analyzer) detectionsFor(snap *acl.Snapshot) []detection {
	var out []detection
	if d := detectBrokenInheritance(snap); d != nil {
		out = append(out, *d)
	}
	if d := detectDirectUserACE(snap, a.config); d != nil {
		out = append(out, *d)
	}
	if d := detectOrphanedSID(snap); d != nil {
		out = append(out, *d)
	}
	if d := detectExcessiveACECount(snap, a.config); d != nil {
		out = append(out, *d)
	}
	if d := detectConflictingDenyOrder(snap); d != nil {
		out = append(out, *d)
	}
	if d := detectOverPermissiveGroups(snap, a.config); d != nil {
		out = append(out, *d)
	}
	return out
}

func allExcluded(affected []string, cfg DetectorConfig) bool {
	if len(affected) == 0 {
		return true
	}
	for _, full := range affected {
		if !isExcludedDirectUser(full, cfg) {
			return false
		}
	}
	return true
}

// aggregateScore implements §4.6's formula: 100 - 100*min(Σrisk, max)/max,
// clamped to [0,100] and rounded to one decimal. Only active issues count.
func aggregateScore(issues []Issue) float64 {
	var sum float64
	for _, i := range issues {
		if i.Status != StatusActive {
			continue
		}
		sum += i.RiskScore
	}
	if sum > sumBaseWeightsMax {
		sum = sumBaseWeightsMax
	}
	score := 100 - 100*sum/sumBaseWeightsMax
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}

func countBySeverity(issues []Issue) map[change.Severity]int {
	out := map[change.Severity]int{}
	for _, i := range issues {
		if i.Status != StatusActive {
			continue
		}
		out[i.Severity]++
	}
	return out
}
