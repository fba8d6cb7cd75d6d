package change

import (
	"testing"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/principal"
)

func principalFor(sid, fullName string) *principal.Principal {
	return &principal.Principal{SID: sid, FullName: fullName}
}

func baseSnapshot(checksum string, owner *principal.Principal, inheritance bool, aces []acl.ACE) *acl.Snapshot {
	return &acl.Snapshot{
		Path:               `C:\Shares\Finance`,
		Owner:              owner,
		InheritanceEnabled: inheritance,
		ACEs:               aces,
		Checksum:           checksum,
	}
}

func ace(sid string, rights ...acl.Right) acl.ACE {
	return acl.ACE{
		Trustee:     principalFor(sid, sid),
		Type:        acl.ACEAllow,
		Permissions: acl.PermissionSet{Basic: acl.NewRightSet(rights...), Advanced: acl.RightSet{}, Directory: acl.RightSet{}},
	}
}

func TestDiffSkippedOnChecksumMatch(t *testing.T) {
	owner := principalFor("S-1-5-21-1-1-1-500", "CORP\\admin")
	old := baseSnapshot("same", owner, true, []acl.ACE{ace("S-1-5-21-1-1-1-1001", acl.RightRead)})
	newer := baseSnapshot("same", owner, true, nil) // ACEs differ but checksum doesn't

	cs := Diff(old.Path, old, newer)
	if cs.Significant() {
		t.Error("expected checksum-equal snapshots to short-circuit to non-significant")
	}
}

func TestDiffDetectsOwnerChange(t *testing.T) {
	old := baseSnapshot("c1", principalFor("S-1-5-21-1-1-1-500", "CORP\\admin"), true, nil)
	newSnap := baseSnapshot("c2", principalFor("S-1-5-21-1-1-1-501", "CORP\\other"), true, nil)

	cs := Diff(old.Path, old, newSnap)
	if cs.OwnerChanged == nil {
		t.Fatal("expected owner_changed to be set")
	}
	if cs.OwnerChanged.OldFullName != "CORP\\admin" || cs.OwnerChanged.NewFullName != "CORP\\other" {
		t.Errorf("unexpected owner change values: %+v", cs.OwnerChanged)
	}
	if !cs.Significant() {
		t.Error("owner change must be significant")
	}
}

func TestDiffDetectsInheritanceChange(t *testing.T) {
	owner := principalFor("S-1-5-21-1-1-1-500", "CORP\\admin")
	old := baseSnapshot("c1", owner, true, nil)
	newSnap := baseSnapshot("c2", owner, false, nil)

	cs := Diff(old.Path, old, newSnap)
	if cs.InheritanceChanged == nil || cs.InheritanceChanged.Old != true || cs.InheritanceChanged.New != false {
		t.Fatalf("expected inheritance_changed true->false, got %+v", cs.InheritanceChanged)
	}
}

func TestDiffDetectsAddedAndRemoved(t *testing.T) {
	owner := principalFor("S-1-5-21-1-1-1-500", "CORP\\admin")
	old := baseSnapshot("c1", owner, true, []acl.ACE{ace("S-1-5-21-1-1-1-1001", acl.RightRead)})
	newSnap := baseSnapshot("c2", owner, true, []acl.ACE{ace("S-1-5-21-1-1-1-1002", acl.RightRead)})

	cs := Diff(old.Path, old, newSnap)
	if len(cs.PermissionsAdded) != 1 || cs.PermissionsAdded[0].Trustee.TrusteeSID != "S-1-5-21-1-1-1-1002" {
		t.Errorf("expected 1002 added, got %+v", cs.PermissionsAdded)
	}
	if len(cs.PermissionsRemoved) != 1 || cs.PermissionsRemoved[0].Trustee.TrusteeSID != "S-1-5-21-1-1-1-1001" {
		t.Errorf("expected 1001 removed, got %+v", cs.PermissionsRemoved)
	}
}

func TestDiffDetectsModified(t *testing.T) {
	owner := principalFor("S-1-5-21-1-1-1-500", "CORP\\admin")
	old := baseSnapshot("c1", owner, true, []acl.ACE{ace("S-1-5-21-1-1-1-1001", acl.RightRead)})
	newSnap := baseSnapshot("c2", owner, true, []acl.ACE{ace("S-1-5-21-1-1-1-1001", acl.RightRead, acl.RightWrite)})

	cs := Diff(old.Path, old, newSnap)
	if len(cs.PermissionsModified) != 1 {
		t.Fatalf("expected 1 modified entry, got %d", len(cs.PermissionsModified))
	}
	if len(cs.PermissionsAdded) != 0 || len(cs.PermissionsRemoved) != 0 {
		t.Errorf("modification must not also appear as add/remove")
	}
}

func TestDiffKeyDistinguishesInheritedFlag(t *testing.T) {
	owner := principalFor("S-1-5-21-1-1-1-500", "CORP\\admin")
	inheritedACE := ace("S-1-5-21-1-1-1-1001", acl.RightRead)
	inheritedACE.Inherited = true
	explicitACE := ace("S-1-5-21-1-1-1-1001", acl.RightRead)
	explicitACE.Inherited = false

	old := baseSnapshot("c1", owner, true, []acl.ACE{inheritedACE})
	newSnap := baseSnapshot("c2", owner, true, []acl.ACE{explicitACE})

	cs := Diff(old.Path, old, newSnap)
	// Same sid/type/permissions but different inherited flag must NOT
	// collapse into "unchanged" -- it is an add of one key and a remove of
	// the other (the known past bug §4.5 pins against).
	if len(cs.PermissionsAdded) != 1 || len(cs.PermissionsRemoved) != 1 {
		t.Errorf("expected inherited-flag change to surface as add+remove, got added=%d removed=%d",
			len(cs.PermissionsAdded), len(cs.PermissionsRemoved))
	}
}

func TestSeverityHighOnOwnerChange(t *testing.T) {
	cs := &ChangeSet{OwnerChanged: &OwnerChange{OldFullName: "a", NewFullName: "b"}}
	if got := cs.Severity(neverSystem); got != SeverityHigh {
		t.Errorf("expected high, got %s", got)
	}
}

func TestSeverityHighOnRemoval(t *testing.T) {
	cs := &ChangeSet{PermissionsRemoved: []PermissionRemoved{{Trustee: acl.DiffKey{TrusteeSID: "S-1"}}}}
	if got := cs.Severity(neverSystem); got != SeverityHigh {
		t.Errorf("expected high, got %s", got)
	}
}

func TestSeverityHighOnWriteEscalationForNonSystem(t *testing.T) {
	cs := &ChangeSet{PermissionsModified: []PermissionModified{{
		Trustee: acl.DiffKey{TrusteeSID: "S-1-5-21-1-1-1-1001"},
		New:     acl.PermissionSet{Basic: acl.NewRightSet(acl.RightWrite)},
	}}}
	if got := cs.Severity(neverSystem); got != SeverityHigh {
		t.Errorf("expected high for Write escalation, got %s", got)
	}
}

func TestSeverityNotEscalatedForSystemTrustee(t *testing.T) {
	cs := &ChangeSet{PermissionsModified: []PermissionModified{{
		Trustee: acl.DiffKey{TrusteeSID: "S-1-5-18"},
		New:     acl.PermissionSet{Basic: acl.NewRightSet(acl.RightWrite)},
	}}}
	if got := cs.Severity(alwaysSystem); got != SeverityMedium {
		t.Errorf("expected medium when escalating trustee is a system principal, got %s", got)
	}
}

func TestSeverityMediumOnAdditionsOnly(t *testing.T) {
	cs := &ChangeSet{PermissionsAdded: []PermissionAdded{{Trustee: acl.DiffKey{TrusteeSID: "S-1"}}}}
	if got := cs.Severity(neverSystem); got != SeverityMedium {
		t.Errorf("expected medium, got %s", got)
	}
}

func TestSeverityLowWhenEmpty(t *testing.T) {
	cs := &ChangeSet{}
	if got := cs.Severity(neverSystem); got != SeverityLow {
		t.Errorf("expected low, got %s", got)
	}
}

func TestFormatCapsAffectedList(t *testing.T) {
	var added []PermissionAdded
	for i := 0; i < 10; i++ {
		added = append(added, PermissionAdded{Trustee: acl.DiffKey{TrusteeSID: "S-1"}})
	}
	cs := &ChangeSet{PermissionsAdded: added}
	summary := Format(cs, SeverityMedium)
	if len(summary.Items) != 1 || len(summary.Items[0].Affected) != maxAffectedListed {
		t.Errorf("expected affected list capped at %d, got %+v", maxAffectedListed, summary.Items)
	}
}

func neverSystem(string) bool  { return false }
func alwaysSystem(string) bool { return true }
