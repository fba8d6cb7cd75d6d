// Package group traces Windows group membership into a cycle-safe tree and
// answers the reverse "which groups is this user in" query, both memoized
// by principal full_name.
package group

import (
	"sync"

	"github.com/shareguard/shareguard/pkg/principal"
)

// MembershipPath is one node of a group's expanded membership tree.
type MembershipPath struct {
	Group        *principal.Principal
	DirectMembers []*principal.Principal
	Nested       []*MembershipPath
	NestedLevel  int
}

// PlatformGroups isolates the OS-specific group-enumeration syscalls behind
// a small interface, mirroring pkg/principal's PlatformLookup seam.
type PlatformGroups interface {
	// DirectMembers returns the immediate members of a group, identified by
	// the group's full_name.
	DirectMembers(groupFullName string) ([]*principal.Principal, error)

	// GroupsOf returns the groups a user directly belongs to, identified by
	// the user's full_name.
	GroupsOf(userFullName string) ([]*principal.Principal, error)
}

// Tracer resolves group membership trees and reverse group lookups, caching
// both by full_name.
type Tracer struct {
	platform    PlatformGroups
	treeCache   sync.Map // full_name -> *MembershipPath
	reverseCache sync.Map // full_name -> []*principal.Principal
}

// NewTracer constructs a Tracer backed by the given platform group
// enumerator.
func NewTracer(platform PlatformGroups) *Tracer {
	return &Tracer{platform: platform}
}

// Expand returns the membership tree rooted at g. System principals are
// never expanded (per the §4.1 system classification) and are returned
// with empty direct/nested sets. Traversal is cycle-safe: a group already
// on the current path is not re-expanded.
func (t *Tracer) Expand(g *principal.Principal) *MembershipPath {
	if cached, ok := t.treeCache.Load(g.FullName); ok {
		return cached.(*MembershipPath)
	}

	visited := map[string]bool{g.FullName: true}
	path := t.expand(g, visited)

	actual, _ := t.treeCache.LoadOrStore(g.FullName, path)
	return actual.(*MembershipPath)
}

func (t *Tracer) expand(g *principal.Principal, visited map[string]bool) *MembershipPath {
	if g.IsSystem {
		return &MembershipPath{Group: g}
	}

	members, err := t.platform.DirectMembers(g.FullName)
	if err != nil {
		return &MembershipPath{Group: g}
	}

	path := &MembershipPath{Group: g, DirectMembers: members}

	maxNested := 0
	for _, m := range members {
		if m.Kind != principal.KindGroup && m.Kind != principal.KindWellKnownGroup && m.Kind != principal.KindAlias {
			continue
		}
		if visited[m.FullName] {
			// Cycle: omit re-expansion of a group already on this path.
			continue
		}
		visited[m.FullName] = true
		nested := t.expand(m, visited)
		delete(visited, m.FullName)

		path.Nested = append(path.Nested, nested)
		if nested.NestedLevel+1 > maxNested {
			maxNested = nested.NestedLevel + 1
		}
	}
	path.NestedLevel = maxNested

	return path
}

// GroupsOf returns the groups userFullName directly belongs to, cached by
// the user's full_name. This backs access-path annotation in pkg/acl.
func (t *Tracer) GroupsOf(user *principal.Principal) []*principal.Principal {
	if cached, ok := t.reverseCache.Load(user.FullName); ok {
		return cached.([]*principal.Principal)
	}

	groups, err := t.platform.GroupsOf(user.FullName)
	if err != nil {
		groups = nil
	}

	actual, _ := t.reverseCache.LoadOrStore(user.FullName, groups)
	return actual.([]*principal.Principal)
}

// ClearCache discards every memoized tree and reverse lookup.
func (t *Tracer) ClearCache() {
	t.treeCache.Range(func(k, _ any) bool { t.treeCache.Delete(k); return true })
	t.reverseCache.Range(func(k, _ any) bool { t.reverseCache.Delete(k); return true })
}
