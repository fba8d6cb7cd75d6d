package acl

import (
	"testing"

	"github.com/shareguard/shareguard/pkg/principal"
)

func owner(sid string) *principal.Principal {
	return &principal.Principal{SID: sid, FullName: sid}
}

func allowACE(sid string, inherited bool, rights ...Right) ACE {
	return ACE{
		Trustee:     &principal.Principal{SID: sid, FullName: sid},
		Type:        ACEAllow,
		Inherited:   inherited,
		Permissions: PermissionSet{Basic: NewRightSet(rights...), Advanced: RightSet{}, Directory: RightSet{}},
	}
}

func TestChecksumStableUnderTimestampOnlyChange(t *testing.T) {
	aces := []ACE{allowACE("S-1-5-21-1-1-1-1001", false, RightRead)}
	c1 := Checksum(owner("S-1-5-21-1-1-1-500"), true, aces)
	c2 := Checksum(owner("S-1-5-21-1-1-1-500"), true, aces)
	if c1 != c2 {
		t.Errorf("checksum not stable: %s != %s", c1, c2)
	}
}

func TestChecksumDiffersOnOwnerChange(t *testing.T) {
	aces := []ACE{allowACE("S-1-5-21-1-1-1-1001", false, RightRead)}
	c1 := Checksum(owner("S-1-5-21-1-1-1-500"), true, aces)
	c2 := Checksum(owner("S-1-5-21-1-1-1-501"), true, aces)
	if c1 == c2 {
		t.Errorf("checksum identical despite owner change")
	}
}

func TestChecksumDiffersOnInheritedFlag(t *testing.T) {
	aceInherited := allowACE("S-1-5-21-1-1-1-1001", true, RightRead)
	aceExplicit := allowACE("S-1-5-21-1-1-1-1001", false, RightRead)

	c1 := Checksum(owner("S-1-5-21-1-1-1-500"), true, []ACE{aceInherited})
	c2 := Checksum(owner("S-1-5-21-1-1-1-500"), true, []ACE{aceExplicit})
	if c1 == c2 {
		t.Errorf("checksum identical despite inherited flag differing (known past bug, §4.5)")
	}
}

func TestChecksumEqualForIdenticalMultiset(t *testing.T) {
	a1 := []ACE{
		allowACE("S-1-5-21-1-1-1-1001", false, RightRead),
		allowACE("S-1-5-21-1-1-1-1002", false, RightWrite),
	}
	a2 := []ACE{
		allowACE("S-1-5-21-1-1-1-1002", false, RightWrite),
		allowACE("S-1-5-21-1-1-1-1001", false, RightRead),
	}

	// Checksum canonicalizes ACE order internally, so two lists carrying
	// the identical (sid, type, inherited, permissions) multiset must
	// checksum equal even when scanned/consolidated in a different order.
	c1 := Checksum(owner("S-1-5-21-1-1-1-500"), true, a1)
	c2 := Checksum(owner("S-1-5-21-1-1-1-500"), true, a2)
	if c1 != c2 {
		t.Errorf("expected order-independent checksums to match for reordered identical ACE multiset, got %s != %s", c1, c2)
	}
}
