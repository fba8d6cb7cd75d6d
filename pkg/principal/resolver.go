package principal

import (
	"fmt"
	"sync"

	"github.com/shareguard/shareguard/internal/logger"
)

// Resolver resolves SIDs to Principals, memoizing every resolution.
//
// The cache is process-local and rebuilt on restart (spec's "bounded
// memoization, not a database" design note); ClearCache is the only
// invalidation path.
type Resolver struct {
	lookup PlatformLookup
	cache  sync.Map // sid string -> *Principal
}

// NewResolver constructs a Resolver backed by the given platform lookup.
func NewResolver(lookup PlatformLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the Principal for sidStr, memoizing the result. It never
// fails: an unresolvable SID degrades to an Unknown principal.
func (r *Resolver) Resolve(sidStr string) *Principal {
	if cached, ok := r.cache.Load(sidStr); ok {
		return cached.(*Principal)
	}

	p := r.resolveUncached(sidStr)
	actual, _ := r.cache.LoadOrStore(sidStr, p)
	return actual.(*Principal)
}

func (r *Resolver) resolveUncached(sidStr string) *Principal {
	result, ok := r.lookup.LookupSID(sidStr)
	if !ok {
		logger.Debug("principal resolution failed, degrading to unknown",
			logger.PrincipalSID(sidStr))
		return unknown(sidStr)
	}

	fullName := fmt.Sprintf(`%s\%s`, result.Domain, result.Name)
	if result.Domain == "" {
		fullName = result.Name
	}

	kind := result.Kind
	if kind == "" {
		kind = KindUnknown
	}

	return &Principal{
		SID:      sidStr,
		Name:     result.Name,
		Domain:   result.Domain,
		FullName: fullName,
		Kind:     kind,
		IsSystem: IsSystemFullName(fullName),
	}
}

// ClearCache discards every memoized resolution.
func (r *Resolver) ClearCache() {
	r.cache.Range(func(key, _ any) bool {
		r.cache.Delete(key)
		return true
	})
}
