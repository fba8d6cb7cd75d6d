package group

import (
	"testing"
	"time"

	"github.com/shareguard/shareguard/pkg/principal"
)

type fakePlatform struct {
	members map[string][]*principal.Principal
	groups  map[string][]*principal.Principal
	calls   map[string]int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members: make(map[string][]*principal.Principal),
		groups:  make(map[string][]*principal.Principal),
		calls:   make(map[string]int),
	}
}

func (f *fakePlatform) DirectMembers(groupFullName string) ([]*principal.Principal, error) {
	f.calls[groupFullName]++
	return f.members[groupFullName], nil
}

func (f *fakePlatform) GroupsOf(userFullName string) ([]*principal.Principal, error) {
	return f.groups[userFullName], nil
}

func group(name string) *principal.Principal {
	return &principal.Principal{FullName: name, Kind: principal.KindGroup}
}

func user(name string) *principal.Principal {
	return &principal.Principal{FullName: name, Kind: principal.KindUser}
}

func TestExpandSimpleTree(t *testing.T) {
	fake := newFakePlatform()
	fake.members[`SHAREGUARD\Finance`] = []*principal.Principal{user(`SHAREGUARD\alice`), user(`SHAREGUARD\bob`)}

	tr := NewTracer(fake)
	path := tr.Expand(group(`SHAREGUARD\Finance`))

	if len(path.DirectMembers) != 2 {
		t.Fatalf("DirectMembers = %d, want 2", len(path.DirectMembers))
	}
	if path.NestedLevel != 0 {
		t.Errorf("NestedLevel = %d, want 0 (no nested groups)", path.NestedLevel)
	}
}

func TestExpandNestedGroups(t *testing.T) {
	fake := newFakePlatform()
	fake.members[`SHAREGUARD\AllStaff`] = []*principal.Principal{group(`SHAREGUARD\Finance`), user(`SHAREGUARD\carol`)}
	fake.members[`SHAREGUARD\Finance`] = []*principal.Principal{user(`SHAREGUARD\alice`)}

	tr := NewTracer(fake)
	path := tr.Expand(group(`SHAREGUARD\AllStaff`))

	if path.NestedLevel != 1 {
		t.Errorf("NestedLevel = %d, want 1", path.NestedLevel)
	}
	if len(path.Nested) != 1 {
		t.Fatalf("Nested = %d, want 1", len(path.Nested))
	}
	if path.Nested[0].Group.FullName != `SHAREGUARD\Finance` {
		t.Errorf("nested group = %q, want Finance", path.Nested[0].Group.FullName)
	}
}

func TestExpandCycleSafe(t *testing.T) {
	fake := newFakePlatform()
	fake.members[`SHAREGUARD\A`] = []*principal.Principal{group(`SHAREGUARD\B`)}
	fake.members[`SHAREGUARD\B`] = []*principal.Principal{group(`SHAREGUARD\A`)}

	tr := NewTracer(fake)

	done := make(chan *MembershipPath, 1)
	go func() { done <- tr.Expand(group(`SHAREGUARD\A`)) }()

	select {
	case path := <-done:
		if len(path.Nested) != 1 {
			t.Fatalf("Nested = %d, want 1 (B expands once)", len(path.Nested))
		}
		b := path.Nested[0]
		if len(b.Nested) != 0 {
			t.Errorf("B.Nested = %d, want 0 (A already visited, cycle stops)", len(b.Nested))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expand did not return: infinite recursion on cyclic group graph")
	}
}

func TestExpandSystemPrincipalNeverExpanded(t *testing.T) {
	fake := newFakePlatform()
	sysGroup := &principal.Principal{FullName: `BUILTIN\Administrators`, Kind: principal.KindWellKnownGroup, IsSystem: true}
	fake.members[`BUILTIN\Administrators`] = []*principal.Principal{user(`SHAREGUARD\admin`)}

	tr := NewTracer(fake)
	path := tr.Expand(sysGroup)

	if len(path.DirectMembers) != 0 {
		t.Errorf("DirectMembers = %d, want 0 for system principal", len(path.DirectMembers))
	}
	if fake.calls[`BUILTIN\Administrators`] != 0 {
		t.Errorf("platform DirectMembers called for a system principal, want short-circuit")
	}
}

func TestExpandMemoizesByFullName(t *testing.T) {
	fake := newFakePlatform()
	fake.members[`SHAREGUARD\Finance`] = []*principal.Principal{user(`SHAREGUARD\alice`)}

	tr := NewTracer(fake)
	tr.Expand(group(`SHAREGUARD\Finance`))
	tr.Expand(group(`SHAREGUARD\Finance`))

	if fake.calls[`SHAREGUARD\Finance`] != 1 {
		t.Errorf("DirectMembers called %d times, want 1 (memoized)", fake.calls[`SHAREGUARD\Finance`])
	}
}

func TestClearCacheForcesReexpand(t *testing.T) {
	fake := newFakePlatform()
	fake.members[`SHAREGUARD\Finance`] = []*principal.Principal{user(`SHAREGUARD\alice`)}

	tr := NewTracer(fake)
	tr.Expand(group(`SHAREGUARD\Finance`))
	tr.ClearCache()
	tr.Expand(group(`SHAREGUARD\Finance`))

	if fake.calls[`SHAREGUARD\Finance`] != 2 {
		t.Errorf("DirectMembers called %d times after ClearCache, want 2", fake.calls[`SHAREGUARD\Finance`])
	}
}
