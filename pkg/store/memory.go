package store

import (
	"strings"
	"sync"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/metrics"
)

// MemoryStore is the in-process Store implementation: a map guarded by a
// global RWMutex for structural access, plus a per-path mutex stripe so
// that two Put calls racing on the same path serialize instead of
// interleaving their read-modify-write of that one entry. Mirrors the
// global-map-mutex-plus-per-entry-mutex discipline a block-cache layer
// would use, adapted here to whole-entry replacement instead of byte-range
// writes.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]*CacheEntry
	pathLocks map[string]*sync.Mutex
	metrics   *metrics.Metrics
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]*CacheEntry),
		pathLocks: make(map[string]*sync.Mutex),
	}
}

// WithMetrics attaches m so every Get/Put/Reap records store-size and
// hit/miss/reap counters. A nil m (the default) disables instrumentation.
func (s *MemoryStore) WithMetrics(m *metrics.Metrics) *MemoryStore {
	s.metrics = m
	return s
}

func (s *MemoryStore) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	lk, ok := s.pathLocks[path]
	if !ok {
		lk = &sync.Mutex{}
		s.pathLocks[path] = lk
	}
	s.mu.Unlock()
	return lk
}

func (s *MemoryStore) Get(path string) (*CacheEntry, bool) {
	s.mu.RLock()
	e, ok := s.entries[path]
	s.mu.RUnlock()
	s.metrics.ObserveStoreLookup(ok)
	if !ok {
		return nil, false
	}
	copyEntry := *e
	return &copyEntry, true
}

func (s *MemoryStore) Put(path string, snapshot *acl.Snapshot, fsMtime time.Time) *CacheEntry {
	lk := s.lockFor(path)
	lk.Lock()
	defer lk.Unlock()

	entry := &CacheEntry{
		Path:     path,
		Snapshot: snapshot,
		FSMtime:  fsMtime,
		StoredAt: time.Now(),
		IsStale:  false,
		Checksum: snapshot.Checksum,
	}

	s.mu.Lock()
	s.entries[path] = entry
	n := len(s.entries)
	s.mu.Unlock()
	s.metrics.SetStoreEntries(n)

	copyEntry := *entry
	return &copyEntry
}

// MarkStale marks path and every entry whose path is related to it by
// directory prefix (descendant or ancestor) stale, atomically with respect
// to any Put racing on an affected path: both hold s.mu for their map
// mutation.
func (s *MemoryStore) MarkStale(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for p, e := range s.entries {
		if pathRelated(path, p) {
			e.IsStale = true
		}
	}
}

func (s *MemoryStore) Reap(retentionCutoff, staleCutoff time.Time) int {
	s.mu.Lock()
	removed := 0
	for p, e := range s.entries {
		if e.StoredAt.Before(retentionCutoff) || (e.IsStale && e.StoredAt.Before(staleCutoff)) {
			delete(s.entries, p)
			delete(s.pathLocks, p)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.ObserveReap(removed)
	s.metrics.SetStoreEntries(n)
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// pathRelated reports whether a and b are the same Windows path or one is a
// directory ancestor of the other.
func pathRelated(a, b string) bool {
	if a == b {
		return true
	}
	an, bn := normalizeDir(a), normalizeDir(b)
	return strings.HasPrefix(bn, an) || strings.HasPrefix(an, bn)
}

func normalizeDir(p string) string {
	if !strings.HasSuffix(p, `\`) {
		p += `\`
	}
	return p
}
