package health

import (
	"fmt"
	"testing"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/principal"
)

type fakeSnapshots struct {
	byPath map[string]*acl.Snapshot
}

func (f *fakeSnapshots) SnapshotFor(path string) (*acl.Snapshot, error) {
	s, ok := f.byPath[path]
	if !ok {
		return nil, fmt.Errorf("no fake snapshot for %s", path)
	}
	return s, nil
}

func cleanSnapshot() *acl.Snapshot {
	return &acl.Snapshot{
		InheritanceEnabled: true,
		ACEs: []acl.ACE{
			{Trustee: &principal.Principal{SID: "S-1-5-21-1-1-1-500", FullName: "CORP\\admin", Kind: principal.KindUser, IsSystem: true}, Type: acl.ACEAllow},
		},
	}
}

func TestRunWithNoIssuesScoresOneHundred(t *testing.T) {
	snapshots := &fakeSnapshots{byPath: map[string]*acl.Snapshot{`C:\Clean`: cleanSnapshot()}}
	a := NewAnalyzer(snapshots, NewMemoryIssueTracker(), NewMemoryScoreRecorder(), DefaultDetectorConfig())

	result, err := a.Run("scan-1", []string{`C:\Clean`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 100.0 {
		t.Errorf("expected score 100.0 with zero issues, got %v", result.Score)
	}
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues, got %d", len(result.Issues))
	}
}

func TestRunDetectsBrokenInheritanceAndLowersScore(t *testing.T) {
	snap := cleanSnapshot()
	snap.InheritanceEnabled = false
	snapshots := &fakeSnapshots{byPath: map[string]*acl.Snapshot{`C:\Broken`: snap}}

	a := NewAnalyzer(snapshots, NewMemoryIssueTracker(), NewMemoryScoreRecorder(), DefaultDetectorConfig())
	result, err := a.Run("scan-2", []string{`C:\Broken`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].IssueType != IssueBrokenInheritance {
		t.Fatalf("expected 1 broken_inheritance issue, got %+v", result.Issues)
	}
	if result.Score >= 100.0 {
		t.Errorf("expected score below 100 with an active issue, got %v", result.Score)
	}
}

func TestRunDedupesAcrossCalls(t *testing.T) {
	snap := cleanSnapshot()
	snap.InheritanceEnabled = false
	snapshots := &fakeSnapshots{byPath: map[string]*acl.Snapshot{`C:\Broken`: snap}}

	tracker := NewMemoryIssueTracker()
	a := NewAnalyzer(snapshots, tracker, NewMemoryScoreRecorder(), DefaultDetectorConfig())

	a.Run("scan-1", []string{`C:\Broken`})
	result, _ := a.Run("scan-2", []string{`C:\Broken`})

	if len(result.Issues) != 1 {
		t.Fatalf("expected re-detection to refresh, not duplicate, got %d issues", len(result.Issues))
	}
	if result.Issues[0].FirstDetected.IsZero() {
		t.Errorf("expected FirstDetected to be preserved")
	}
}

func TestRunDropsDirectUserACEWhenAllExcluded(t *testing.T) {
	snap := &acl.Snapshot{
		InheritanceEnabled: true,
		ACEs: []acl.ACE{
			{Trustee: &principal.Principal{SID: "S-1-5-21-1-1-1-500", FullName: "CORP\\Administrator", Kind: principal.KindUser}, Type: acl.ACEAllow},
		},
	}
	snapshots := &fakeSnapshots{byPath: map[string]*acl.Snapshot{`C:\Admin`: snap}}
	a := NewAnalyzer(snapshots, NewMemoryIssueTracker(), NewMemoryScoreRecorder(), DefaultDetectorConfig())

	result, _ := a.Run("scan-1", []string{`C:\Admin`})
	for _, i := range result.Issues {
		if i.IssueType == IssueDirectUserACE {
			t.Errorf("expected direct_user_ace for built-in Administrator to be excluded, got %+v", i)
		}
	}
}

func TestRunSkipsPathWithNoSnapshotWithoutAborting(t *testing.T) {
	snapshots := &fakeSnapshots{byPath: map[string]*acl.Snapshot{`C:\Clean`: cleanSnapshot()}}
	a := NewAnalyzer(snapshots, NewMemoryIssueTracker(), NewMemoryScoreRecorder(), DefaultDetectorConfig())

	result, err := a.Run("scan-1", []string{`C:\Missing`, `C:\Clean`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Issues) != 0 {
		t.Errorf("expected clean path to still be processed with 0 issues, got %+v", result.Issues)
	}
}

func TestRunRecordsScoreHistory(t *testing.T) {
	snapshots := &fakeSnapshots{byPath: map[string]*acl.Snapshot{`C:\Clean`: cleanSnapshot()}}
	recorder := NewMemoryScoreRecorder()
	a := NewAnalyzer(snapshots, NewMemoryIssueTracker(), recorder, DefaultDetectorConfig())

	a.Run("scan-1", []string{`C:\Clean`})
	if len(recorder.History()) != 1 {
		t.Fatalf("expected 1 recorded history point, got %d", len(recorder.History()))
	}
}
