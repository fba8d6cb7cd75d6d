// Package change diffs two ACL snapshots of the same path into a
// categorized set of changes, with severity and human-readable formatting.
package change

import (
	"fmt"
	"path"
	"strings"

	"github.com/shareguard/shareguard/pkg/acl"
)

// ChangeType categorizes one detected difference.
type ChangeType string

const (
	ChangeOwnerChanged          ChangeType = "owner_changed"
	ChangeInheritanceChanged    ChangeType = "inheritance_changed"
	ChangePermissionAdded       ChangeType = "permission_added"
	ChangePermissionRemoved     ChangeType = "permission_removed"
	ChangePermissionModified    ChangeType = "permission_modified"
)

// Severity ranks a ChangeSet or Change Record.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// OwnerChange describes an owner_changed event.
type OwnerChange struct {
	OldFullName string
	NewFullName string
}

// InheritanceChange describes an inheritance_changed event.
type InheritanceChange struct {
	Old bool
	New bool
}

// PermissionAdded/Removed describe one trustee's permission set appearing
// or disappearing entirely.
type PermissionAdded struct {
	Trustee     acl.DiffKey
	Permissions acl.PermissionSet
}

type PermissionRemoved struct {
	Trustee     acl.DiffKey
	Permissions acl.PermissionSet
}

// PermissionModified describes one trustee's permission set changing while
// the ACE itself persists.
type PermissionModified struct {
	Trustee acl.DiffKey
	Old     acl.PermissionSet
	New     acl.PermissionSet
}

// ChangeSet is the categorized diff between two snapshots of one path.
type ChangeSet struct {
	Path                string
	OwnerChanged        *OwnerChange
	InheritanceChanged  *InheritanceChange
	PermissionsAdded    []PermissionAdded
	PermissionsRemoved  []PermissionRemoved
	PermissionsModified []PermissionModified
}

// Significant reports whether any category of change is non-empty (§4.5).
func (c *ChangeSet) Significant() bool {
	return c.OwnerChanged != nil ||
		c.InheritanceChanged != nil ||
		len(c.PermissionsAdded) > 0 ||
		len(c.PermissionsRemoved) > 0 ||
		len(c.PermissionsModified) > 0
}

// Diff compares old and new snapshots of the same path. Checksum equality
// is the fast-path pre-check: when checksums match, the diff is skipped
// entirely and an empty, non-significant ChangeSet is returned.
func Diff(pathName string, oldSnap, newSnap *acl.Snapshot) *ChangeSet {
	cs := &ChangeSet{Path: pathName}

	if oldSnap.Checksum == newSnap.Checksum {
		return cs
	}

	if oldSnap.Owner.FullName != newSnap.Owner.FullName {
		cs.OwnerChanged = &OwnerChange{OldFullName: oldSnap.Owner.FullName, NewFullName: newSnap.Owner.FullName}
	}
	if oldSnap.InheritanceEnabled != newSnap.InheritanceEnabled {
		cs.InheritanceChanged = &InheritanceChange{Old: oldSnap.InheritanceEnabled, New: newSnap.InheritanceEnabled}
	}

	oldByKey := indexByDiffKey(oldSnap.ACEs)
	newByKey := indexByDiffKey(newSnap.ACEs)

	for k, newACE := range newByKey {
		oldACE, existed := oldByKey[k]
		if !existed {
			cs.PermissionsAdded = append(cs.PermissionsAdded, PermissionAdded{Trustee: k, Permissions: newACE.Permissions})
			continue
		}
		if !oldACE.Permissions.Equal(newACE.Permissions) {
			cs.PermissionsModified = append(cs.PermissionsModified, PermissionModified{
				Trustee: k,
				Old:     oldACE.Permissions,
				New:     newACE.Permissions,
			})
		}
	}
	for k, oldACE := range oldByKey {
		if _, stillPresent := newByKey[k]; !stillPresent {
			cs.PermissionsRemoved = append(cs.PermissionsRemoved, PermissionRemoved{Trustee: k, Permissions: oldACE.Permissions})
		}
	}

	return cs
}

func indexByDiffKey(aces []acl.ACE) map[acl.DiffKey]acl.ACE {
	out := make(map[acl.DiffKey]acl.ACE, len(aces))
	for _, a := range aces {
		out[a.DiffKey()] = a
	}
	return out
}

// escalatingRights are the rights whose presence in a modified ACE's new
// permission set counts as a privilege escalation for severity purposes.
var escalatingRights = map[acl.Right]bool{
	acl.RightWrite:       true,
	acl.RightFullControl: true,
}

// Severity derives the overall severity of cs per §4.5. isSystemTrustee
// reports whether a trustee SID is a system principal, needed to scope the
// escalation rule to real users/groups rather than platform accounts.
func (cs *ChangeSet) Severity(isSystemTrustee func(sid string) bool) Severity {
	if cs.OwnerChanged != nil || len(cs.PermissionsRemoved) > 0 {
		return SeverityHigh
	}
	for _, m := range cs.PermissionsModified {
		if isSystemTrustee(m.Trustee.TrusteeSID) {
			continue
		}
		if hasEscalatingRight(m.New) {
			return SeverityHigh
		}
	}
	if len(cs.PermissionsAdded) > 0 || len(cs.PermissionsModified) > 0 || cs.InheritanceChanged != nil {
		return SeverityMedium
	}
	return SeverityLow
}

func hasEscalatingRight(p acl.PermissionSet) bool {
	for r := range p.Basic {
		if escalatingRights[r] {
			return true
		}
	}
	return false
}

// Summary is the short, one-line-per-category human-readable rendering of a
// ChangeSet, plus a structured detail record suitable for a UI.
type Summary struct {
	Folder   string
	Counts   map[ChangeType]int
	Lines    []string
	Items    []Item
	Impact   string
}

// Item is one per-change entry in a rendered Summary.
type Item struct {
	Type        ChangeType
	Description string
	Affected    []string // trustee full names / SIDs, capped
}

const maxAffectedListed = 5

// Format renders cs into a Summary for notification/UI consumption.
func Format(cs *ChangeSet, severity Severity) Summary {
	s := Summary{
		Folder: path.Base(strings.TrimRight(cs.Path, `\`)),
		Counts: map[ChangeType]int{},
	}

	if cs.OwnerChanged != nil {
		s.Counts[ChangeOwnerChanged]++
		desc := fmt.Sprintf("owner changed from %s to %s", cs.OwnerChanged.OldFullName, cs.OwnerChanged.NewFullName)
		s.Lines = append(s.Lines, desc)
		s.Items = append(s.Items, Item{Type: ChangeOwnerChanged, Description: desc, Affected: []string{cs.OwnerChanged.NewFullName}})
	}
	if cs.InheritanceChanged != nil {
		s.Counts[ChangeInheritanceChanged]++
		desc := fmt.Sprintf("inheritance changed from %v to %v", cs.InheritanceChanged.Old, cs.InheritanceChanged.New)
		s.Lines = append(s.Lines, desc)
		s.Items = append(s.Items, Item{Type: ChangeInheritanceChanged, Description: desc})
	}
	if n := len(cs.PermissionsAdded); n > 0 {
		s.Counts[ChangePermissionAdded] = n
		s.Lines = append(s.Lines, fmt.Sprintf("%d permission(s) added", n))
		s.Items = append(s.Items, Item{Type: ChangePermissionAdded, Description: fmt.Sprintf("%d new grant(s)", n), Affected: capAffected(sidsOf(cs.PermissionsAdded))})
	}
	if n := len(cs.PermissionsRemoved); n > 0 {
		s.Counts[ChangePermissionRemoved] = n
		s.Lines = append(s.Lines, fmt.Sprintf("%d permission(s) removed", n))
		s.Items = append(s.Items, Item{Type: ChangePermissionRemoved, Description: fmt.Sprintf("%d grant(s) revoked", n), Affected: capAffected(removedSids(cs.PermissionsRemoved))})
	}
	if n := len(cs.PermissionsModified); n > 0 {
		s.Counts[ChangePermissionModified] = n
		s.Lines = append(s.Lines, fmt.Sprintf("%d permission(s) modified", n))
		s.Items = append(s.Items, Item{Type: ChangePermissionModified, Description: fmt.Sprintf("%d grant(s) changed", n), Affected: capAffected(modifiedSids(cs.PermissionsModified))})
	}

	switch severity {
	case SeverityCritical:
		s.Impact = "immediate review required: critical privilege exposure detected"
	case SeverityHigh:
		s.Impact = "review recommended: access was revoked, reassigned, or escalated"
	case SeverityMedium:
		s.Impact = "informational: permissions or inheritance changed"
	default:
		s.Impact = "low impact change"
	}

	return s
}

func sidsOf(added []PermissionAdded) []string {
	out := make([]string, len(added))
	for i, a := range added {
		out[i] = a.Trustee.TrusteeSID
	}
	return out
}

func removedSids(removed []PermissionRemoved) []string {
	out := make([]string, len(removed))
	for i, r := range removed {
		out[i] = r.Trustee.TrusteeSID
	}
	return out
}

func modifiedSids(modified []PermissionModified) []string {
	out := make([]string, len(modified))
	for i, m := range modified {
		out[i] = m.Trustee.TrusteeSID
	}
	return out
}

func capAffected(sids []string) []string {
	if len(sids) <= maxAffectedListed {
		return sids
	}
	return sids[:maxAffectedListed]
}
