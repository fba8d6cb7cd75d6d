package health

import (
	"testing"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/principal"
)

func userACE(sid, fullName string, isSystem bool, t acl.ACEType) acl.ACE {
	return acl.ACE{
		Trustee: &principal.Principal{SID: sid, FullName: fullName, Kind: principal.KindUser, IsSystem: isSystem},
		Type:    t,
	}
}

func TestDetectBrokenInheritanceFiresWhenDisabled(t *testing.T) {
	snap := &acl.Snapshot{InheritanceEnabled: false}
	d := detectBrokenInheritance(snap)
	if d == nil || d.severity != change.SeverityMedium {
		t.Fatalf("expected medium broken_inheritance detection, got %+v", d)
	}
}

func TestDetectBrokenInheritanceSilentWhenEnabled(t *testing.T) {
	snap := &acl.Snapshot{InheritanceEnabled: true}
	if d := detectBrokenInheritance(snap); d != nil {
		t.Errorf("expected no detection, got %+v", d)
	}
}

func TestDetectDirectUserACESeverityEscalatesByCount(t *testing.T) {
	var aces []acl.ACE
	for i := 0; i < 6; i++ {
		aces = append(aces, userACE("S-1-5-21-1-1-1-100"+string(rune('0'+i)), "CORP\\user"+string(rune('0'+i)), false, acl.ACEAllow))
	}
	snap := &acl.Snapshot{ACEs: aces}
	d := detectDirectUserACE(snap, DefaultDetectorConfig())
	if d == nil || d.severity != change.SeverityHigh {
		t.Fatalf("expected high severity for 6 direct user ACEs, got %+v", d)
	}
}

func TestDetectDirectUserACEIgnoresSystemTrustees(t *testing.T) {
	snap := &acl.Snapshot{ACEs: []acl.ACE{userACE("S-1-5-18", "NT AUTHORITY\\SYSTEM", true, acl.ACEAllow)}}
	if d := detectDirectUserACE(snap, DefaultDetectorConfig()); d != nil {
		t.Errorf("expected system trustee to be ignored, got %+v", d)
	}
}

func TestDetectOrphanedSIDRequiresSPrefixAndUnknownKind(t *testing.T) {
	snap := &acl.Snapshot{ACEs: []acl.ACE{
		{Trustee: &principal.Principal{Kind: principal.KindUnknown, Name: "S-1-5-21-9-9-9-9999", FullName: "S-1-5-21-9-9-9-9999"}},
	}}
	d := detectOrphanedSID(snap)
	if d == nil || d.severity != change.SeverityLow {
		t.Fatalf("expected low severity orphaned_sid detection, got %+v", d)
	}
}

func TestDetectOrphanedSIDIgnoresTotalResolutionFailure(t *testing.T) {
	snap := &acl.Snapshot{ACEs: []acl.ACE{
		{Trustee: &principal.Principal{Kind: principal.KindUnknown, Name: "Unknown", FullName: "Unknown SID: S-1-5-21-1-1-1-1"}},
	}}
	if d := detectOrphanedSID(snap); d != nil {
		t.Errorf("expected total resolution failure to not be orphaned_sid, got %+v", d)
	}
}

func TestDetectExcessiveACECountRespectsConfiguredThreshold(t *testing.T) {
	aces := make([]acl.ACE, 51)
	for i := range aces {
		aces[i] = acl.ACE{Trustee: &principal.Principal{SID: "S-1", FullName: "x"}}
	}
	snap := &acl.Snapshot{ACEs: aces}
	cfg := DefaultDetectorConfig()
	d := detectExcessiveACECount(snap, cfg)
	if d == nil || d.severity != change.SeverityMedium {
		t.Fatalf("expected medium excessive_ace_count at 51, got %+v", d)
	}
}

func TestDetectExcessiveACECountHighAbove100(t *testing.T) {
	aces := make([]acl.ACE, 101)
	for i := range aces {
		aces[i] = acl.ACE{Trustee: &principal.Principal{SID: "S-1", FullName: "x"}}
	}
	snap := &acl.Snapshot{ACEs: aces}
	d := detectExcessiveACECount(snap, DefaultDetectorConfig())
	if d == nil || d.severity != change.SeverityHigh {
		t.Fatalf("expected high severity above 100, got %+v", d)
	}
}

func TestDetectConflictingDenyOrderRequiresAllowBeforeDeny(t *testing.T) {
	p := &principal.Principal{SID: "S-1-5-21-1-1-1-1001", FullName: "CORP\\user"}
	snap := &acl.Snapshot{ACEs: []acl.ACE{
		{Trustee: p, Type: acl.ACEAllow},
		{Trustee: p, Type: acl.ACEDeny},
	}}
	d := detectConflictingDenyOrder(snap)
	if d == nil || d.severity != change.SeverityHigh {
		t.Fatalf("expected high conflicting_deny_order, got %+v", d)
	}
}

func TestDetectConflictingDenyOrderIgnoresDenyBeforeAllow(t *testing.T) {
	p := &principal.Principal{SID: "S-1-5-21-1-1-1-1001", FullName: "CORP\\user"}
	snap := &acl.Snapshot{ACEs: []acl.ACE{
		{Trustee: p, Type: acl.ACEDeny},
		{Trustee: p, Type: acl.ACEAllow},
	}}
	if d := detectConflictingDenyOrder(snap); d != nil {
		t.Errorf("expected Deny-before-Allow (correct precedence) to not conflict, got %+v", d)
	}
}

func TestDetectOverPermissiveGroupsSeverityByCount(t *testing.T) {
	snap := &acl.Snapshot{ACEs: []acl.ACE{
		{Trustee: &principal.Principal{FullName: "CORP\\Domain Admins"}, Type: acl.ACEAllow},
		{Trustee: &principal.Principal{FullName: "NT AUTHORITY\\Everyone"}, Type: acl.ACEAllow},
		{Trustee: &principal.Principal{FullName: "BUILTIN\\Administrators"}, Type: acl.ACEAllow},
	}}
	d := detectOverPermissiveGroups(snap, DefaultDetectorConfig())
	if d == nil || d.severity != change.SeverityCritical {
		t.Fatalf("expected critical severity for 3 critical-group grants, got %+v", d)
	}
}

func TestDetectOverPermissiveGroupsIgnoresDenyACEs(t *testing.T) {
	snap := &acl.Snapshot{ACEs: []acl.ACE{
		{Trustee: &principal.Principal{FullName: "NT AUTHORITY\\Everyone"}, Type: acl.ACEDeny},
	}}
	if d := detectOverPermissiveGroups(snap, DefaultDetectorConfig()); d != nil {
		t.Errorf("expected Deny ACE to critical group to not trigger, got %+v", d)
	}
}
