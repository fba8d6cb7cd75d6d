// Package store is the Snapshot Store: a stable, keyed record of the latest
// ACL snapshot for every watched path, with staleness and TTL semantics
// layered on top so consumers know when a re-scan is required.
package store

import (
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
)

// DefaultTTL is how long a fresh cache entry stays valid without being
// touched by a change.
const DefaultTTL = 24 * time.Hour

// DefaultRetention is the age at which an entry is reaped outright,
// regardless of staleness.
const DefaultRetention = 48 * time.Hour

// CacheEntry is one stored record: the latest snapshot for a path plus the
// bookkeeping needed to decide whether it is still trustworthy.
type CacheEntry struct {
	Path     string
	Snapshot *acl.Snapshot
	FSMtime  time.Time // zero if unknown
	StoredAt time.Time
	IsStale  bool
	Checksum string
}

// Valid reports whether e is still usable without a re-scan: not stale, not
// past ttl, and (when fs_mtime is known) not modified on disk since it was
// stored.
func (e *CacheEntry) Valid(now time.Time, ttl time.Duration) bool {
	if e == nil || e.IsStale {
		return false
	}
	if now.Sub(e.StoredAt) >= ttl {
		return false
	}
	if !e.FSMtime.IsZero() && e.FSMtime.After(e.StoredAt) {
		return false
	}
	return true
}

// Store is the Snapshot Store contract (§4.4).
type Store interface {
	// Get returns the entry for path, if one exists.
	Get(path string) (*CacheEntry, bool)

	// Put records snapshot as the latest state for path, clearing staleness.
	// fsMtime may be the zero time when unavailable.
	Put(path string, snapshot *acl.Snapshot, fsMtime time.Time) *CacheEntry

	// MarkStale marks path and every entry whose path is a descendant or
	// ancestor of it (prefix match either direction) stale. Atomic with
	// respect to concurrent Put calls.
	MarkStale(path string)

	// Reap removes entries with stored_at before retentionCutoff outright,
	// and stale entries with stored_at before staleCutoff.
	Reap(retentionCutoff, staleCutoff time.Time) int

	// Len returns the number of entries currently stored, for metrics.
	Len() int
}
