// Package acl scans Windows DACLs into normalized, checksummed snapshots.
package acl

import (
	"time"

	"github.com/shareguard/shareguard/pkg/principal"
)

// Right is one access right within a PermissionSet bucket.
type Right string

const (
	RightRead        Right = "Read"
	RightWrite       Right = "Write"
	RightExecute     Right = "Execute"
	RightFullControl Right = "FullControl"

	RightDelete            Right = "Delete"
	RightReadPermissions   Right = "ReadPermissions"
	RightChangePermissions Right = "ChangePermissions"
	RightTakeOwnership     Right = "TakeOwnership"

	RightListFolder      Right = "ListFolder"
	RightCreateFiles     Right = "CreateFiles"
	RightCreateFolders   Right = "CreateFolders"
	RightReadEA          Right = "ReadEA"
	RightWriteEA         Right = "WriteEA"
	RightTraverse        Right = "Traverse"
	RightDeleteChild     Right = "DeleteChild"
	RightReadAttributes  Right = "ReadAttributes"
	RightWriteAttributes Right = "WriteAttributes"
)

// RightSet is an unordered set of Rights within one PermissionSet bucket.
type RightSet map[Right]struct{}

// NewRightSet builds a RightSet from individual rights.
func NewRightSet(rights ...Right) RightSet {
	s := make(RightSet, len(rights))
	for _, r := range rights {
		s[r] = struct{}{}
	}
	return s
}

// Has reports whether r is present in the set.
func (s RightSet) Has(r Right) bool {
	_, ok := s[r]
	return ok
}

// Add inserts r into the set.
func (s RightSet) Add(r Right) { s[r] = struct{}{} }

// Union returns a new set containing every right in s or other.
func (s RightSet) Union(other RightSet) RightSet {
	out := make(RightSet, len(s)+len(other))
	for r := range s {
		out[r] = struct{}{}
	}
	for r := range other {
		out[r] = struct{}{}
	}
	return out
}

// Equal reports whether two sets contain exactly the same rights.
func (s RightSet) Equal(other RightSet) bool {
	if len(s) != len(other) {
		return false
	}
	for r := range s {
		if !other.Has(r) {
			return false
		}
	}
	return true
}

// Sorted returns the set's rights in a stable, deterministic order, for
// checksum computation and display.
func (s RightSet) Sorted() []Right {
	out := make([]Right, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// PermissionSet is a categorized set of rights in three buckets. The
// FullControl invariant (§3) is enforced by Reduce, not by the type itself.
type PermissionSet struct {
	Basic     RightSet
	Advanced  RightSet
	Directory RightSet
}

// NewPermissionSet returns an empty PermissionSet with initialized buckets.
func NewPermissionSet() PermissionSet {
	return PermissionSet{
		Basic:     RightSet{},
		Advanced:  RightSet{},
		Directory: RightSet{},
	}
}

// Union returns the bucket-wise union of two permission sets.
func (p PermissionSet) Union(other PermissionSet) PermissionSet {
	return PermissionSet{
		Basic:     p.Basic.Union(other.Basic),
		Advanced:  p.Advanced.Union(other.Advanced),
		Directory: p.Directory.Union(other.Directory),
	}
}

// Equal reports whether two permission sets contain identical rights in
// every bucket.
func (p PermissionSet) Equal(other PermissionSet) bool {
	return p.Basic.Equal(other.Basic) &&
		p.Advanced.Equal(other.Advanced) &&
		p.Directory.Equal(other.Directory)
}

// Empty reports whether every bucket is empty.
func (p PermissionSet) Empty() bool {
	return len(p.Basic) == 0 && len(p.Advanced) == 0 && len(p.Directory) == 0
}

// Reduce enforces the FullControl-subsumption invariant: if Basic contains
// FullControl, Advanced and Directory are cleared.
func (p PermissionSet) Reduce() PermissionSet {
	if p.Basic.Has(RightFullControl) {
		return PermissionSet{
			Basic:     p.Basic,
			Advanced:  RightSet{},
			Directory: RightSet{},
		}
	}
	return p
}

// ACEType distinguishes an Allow entry from a Deny entry.
type ACEType string

const (
	ACEAllow ACEType = "Allow"
	ACEDeny  ACEType = "Deny"
)

// AccessPath traces why a trustee effectively has access to a path: a
// direct grant, a group chain, or both.
type AccessPath struct {
	Direct bool
	Groups []string // group chains, rendered as full_name; depth == len(Groups)
}

// ACE is one normalized access control entry.
type ACE struct {
	Trustee     *principal.Principal
	Type        ACEType
	Inherited   bool
	Permissions PermissionSet
	AccessPaths []AccessPath
}

// Key identifies an ACE for consolidation/diff purposes: the triple
// (trustee full_name, type, inherited).
type Key struct {
	TrusteeFullName string
	Type            ACEType
	Inherited       bool
}

// DiffKey identifies an ACE for change detection, keyed by SID instead of
// full_name so renames of the same principal do not look like add+remove.
type DiffKey struct {
	TrusteeSID string
	Type       ACEType
	Inherited  bool
}

func (a ACE) Key() Key {
	return Key{TrusteeFullName: a.Trustee.FullName, Type: a.Type, Inherited: a.Inherited}
}

func (a ACE) DiffKey() DiffKey {
	return DiffKey{TrusteeSID: a.Trustee.SID, Type: a.Type, Inherited: a.Inherited}
}

// Snapshot is the immutable result of one scan of one path.
type Snapshot struct {
	Path               string
	ScannedAt          time.Time
	Owner              *principal.Principal
	PrimaryGroup       *principal.Principal
	InheritanceEnabled bool
	ACEs               []ACE
	Checksum           string

	// Statistics, not part of the checksum.
	TotalFolders     int
	ProcessedFolders int
	ErrorCount       int
	SystemACEs       int
	NonSystemACEs    int
}
