package health

import "sync"

// MemoryIssueTracker is an in-process IssueTracker keyed by (path,
// issue_type), holding only active issues; resolved/ignored issues are the
// control plane's concern (pkg/controlplane/store persists full history).
type MemoryIssueTracker struct {
	mu     sync.Mutex
	active map[Key]Issue
}

// NewMemoryIssueTracker returns an empty tracker.
func NewMemoryIssueTracker() *MemoryIssueTracker {
	return &MemoryIssueTracker{active: make(map[Key]Issue)}
}

func (t *MemoryIssueTracker) Get(key Key) (*Issue, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.active[key]
	if !ok {
		return nil, false
	}
	return &i, true
}

// Upsert inserts issue if its key is unseen, or refreshes LastSeen,
// Severity, RiskScore, and AffectedPrincipals on the existing active entry
// while preserving its original FirstDetected.
func (t *MemoryIssueTracker) Upsert(issue Issue) Issue {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := issue.Key()
	if existing, ok := t.active[key]; ok {
		existing.LastSeen = issue.LastSeen
		existing.Severity = issue.Severity
		existing.RiskScore = issue.RiskScore
		existing.AffectedPrincipals = issue.AffectedPrincipals
		t.active[key] = existing
		return existing
	}

	t.active[key] = issue
	return issue
}

// Resolve marks an active issue resolved and removes it from the active
// table, matching §3's Issue lifecycle.
func (t *MemoryIssueTracker) Resolve(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, key)
}

// MemoryScoreRecorder is an in-process, append-only ScoreRecorder.
type MemoryScoreRecorder struct {
	mu     sync.Mutex
	points []ScoreHistoryPoint
}

// NewMemoryScoreRecorder returns an empty recorder.
func NewMemoryScoreRecorder() *MemoryScoreRecorder {
	return &MemoryScoreRecorder{}
}

func (r *MemoryScoreRecorder) Record(point ScoreHistoryPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, point)
}

// History returns a copy of every recorded point, oldest first.
func (r *MemoryScoreRecorder) History() []ScoreHistoryPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ScoreHistoryPoint, len(r.points))
	copy(out, r.points)
	return out
}
