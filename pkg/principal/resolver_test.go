package principal

import (
	"sync/atomic"
	"testing"
)

type fakeLookup struct {
	calls   atomic.Int64
	results map[string]LookupResult
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{results: make(map[string]LookupResult)}
}

func (f *fakeLookup) LookupSID(sidStr string) (LookupResult, bool) {
	f.calls.Add(1)
	r, ok := f.results[sidStr]
	return r, ok
}

func TestResolveKnownSID(t *testing.T) {
	fake := newFakeLookup()
	fake.results["S-1-5-21-1-2-3-1001"] = LookupResult{Name: "manderson", Domain: "SHAREGUARD", Kind: KindUser}

	r := NewResolver(fake)
	p := r.Resolve("S-1-5-21-1-2-3-1001")

	if p.FullName != `SHAREGUARD\manderson` {
		t.Errorf("FullName = %q, want SHAREGUARD\\manderson", p.FullName)
	}
	if p.Kind != KindUser {
		t.Errorf("Kind = %q, want user", p.Kind)
	}
	if p.IsSystem {
		t.Errorf("IsSystem = true, want false")
	}
}

func TestResolveUnknownSIDDegrades(t *testing.T) {
	fake := newFakeLookup()
	r := NewResolver(fake)

	p := r.Resolve("S-1-5-21-9-9-9-9999")
	if p.Kind != KindUnknown {
		t.Errorf("Kind = %q, want unknown", p.Kind)
	}
	if p.Name != "Unknown" {
		t.Errorf("Name = %q, want Unknown", p.Name)
	}
	want := "Unknown SID: S-1-5-21-9-9-9-9999"
	if p.FullName != want {
		t.Errorf("FullName = %q, want %q", p.FullName, want)
	}
}

func TestResolveMemoizes(t *testing.T) {
	fake := newFakeLookup()
	fake.results["S-1-5-18"] = LookupResult{Name: "SYSTEM", Domain: "NT AUTHORITY", Kind: KindWellKnownGroup}

	r := NewResolver(fake)
	r.Resolve("S-1-5-18")
	r.Resolve("S-1-5-18")
	r.Resolve("S-1-5-18")

	if got := fake.calls.Load(); got != 1 {
		t.Errorf("lookup called %d times, want 1 (memoized)", got)
	}
}

func TestClearCacheForcesReresolve(t *testing.T) {
	fake := newFakeLookup()
	fake.results["S-1-5-18"] = LookupResult{Name: "SYSTEM", Domain: "NT AUTHORITY", Kind: KindWellKnownGroup}

	r := NewResolver(fake)
	r.Resolve("S-1-5-18")
	r.ClearCache()
	r.Resolve("S-1-5-18")

	if got := fake.calls.Load(); got != 2 {
		t.Errorf("lookup called %d times after ClearCache, want 2", got)
	}
}

func TestIsSystemFullName(t *testing.T) {
	tests := []struct {
		fullName string
		want     bool
	}{
		{`NT AUTHORITY\SYSTEM`, true},
		{`BUILTIN\Administrators`, true},
		{`CREATOR OWNER`, true},
		{`NT SERVICE\TrustedInstaller`, true},
		{`NT AUTHORITY\Authenticated Users`, true},
		{`SHAREGUARD\manderson`, false},
		{`Everyone`, false},
	}
	for _, tt := range tests {
		if got := IsSystemFullName(tt.fullName); got != tt.want {
			t.Errorf("IsSystemFullName(%q) = %v, want %v", tt.fullName, got, tt.want)
		}
	}
}
