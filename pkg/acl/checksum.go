package acl

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/shareguard/shareguard/pkg/principal"
)

// canonicalACE is the checksum-contributing shape of one ACE: sid, type,
// inherited, and a deterministically sorted permission list. Statistics,
// timestamps, and access-path traces never contribute.
type canonicalACE struct {
	SID         string  `json:"sid"`
	Type        ACEType `json:"type"`
	Inherited   bool    `json:"inherited"`
	Permissions []Right `json:"permissions"`
}

type canonicalSnapshot struct {
	OwnerSID           string         `json:"owner_sid"`
	InheritanceEnabled bool           `json:"inheritance_enabled"`
	ACEs               []canonicalACE `json:"aces"`
}

// Checksum computes the 32-byte (64 hex character) SHA-256 digest of the
// canonical tuple (owner.sid, inheritance_enabled, ACE tuples of
// (sid, type, inherited, sorted-permissions) sorted into a canonical order).
// Two consolidated ACE lists containing the identical multiset of tuples
// checksum equal regardless of scan order; unrelated fields never perturb
// it.
func Checksum(owner *principal.Principal, inheritanceEnabled bool, aces []ACE) string {
	ownerSID := ""
	if owner != nil {
		ownerSID = owner.SID
	}
	canon := canonicalSnapshot{
		OwnerSID:           ownerSID,
		InheritanceEnabled: inheritanceEnabled,
	}
	for _, ace := range aces {
		perms := ace.Permissions.Basic.Sorted()
		perms = append(perms, ace.Permissions.Advanced.Sorted()...)
		perms = append(perms, ace.Permissions.Directory.Sorted()...)
		canon.ACEs = append(canon.ACEs, canonicalACE{
			SID:         ace.Trustee.SID,
			Type:        ace.Type,
			Inherited:   ace.Inherited,
			Permissions: perms,
		})
	}

	// Sort by the (sid, type, inherited) tuple so two ACE lists containing
	// the identical (sid, type, inherited, permissions) multiset checksum
	// equal regardless of scan order (§8 invariant); the snapshot's own
	// ACEs field keeps platform order separately for Deny-before-Allow
	// evaluation.
	sortCanonicalACEs(canon.ACEs)

	// json.Marshal on a struct with fixed field order and slices in
	// insertion order is deterministic, which is what "canonical JSON"
	// requires here.
	data, err := json.Marshal(canon)
	if err != nil {
		// canonicalSnapshot contains only marshalable primitives; this
		// cannot fail in practice.
		panic("acl: checksum marshal: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sortCanonicalACEs imposes a deterministic order over the (sid, type,
// inherited) tuple, breaking remaining ties on the permission list itself
// so that even two ACEs sharing a key sort stably.
func sortCanonicalACEs(aces []canonicalACE) {
	sort.Slice(aces, func(i, j int) bool {
		a, b := aces[i], aces[j]
		if a.SID != b.SID {
			return a.SID < b.SID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Inherited != b.Inherited {
			return !a.Inherited
		}
		return permissionsLess(a.Permissions, b.Permissions)
	})
}

func permissionsLess(a, b []Right) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
