package controlplane

import (
	"context"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/health"
	"github.com/shareguard/shareguard/pkg/store"
)

// scanningSnapshotProvider implements health.SnapshotProvider: it consults
// the in-memory Snapshot Store first and only falls back to an *acl.Scanner
// scan when no valid entry exists, mirroring pkg/monitor.Loop.processPath's
// scan-then-cache sequence.
type scanningSnapshotProvider struct {
	scanner *acl.Scanner
	cache   store.Store
	opts    acl.Options
}

// NewScanningSnapshotProvider constructs a health.SnapshotProvider backed by
// scanner, caching results in cache. Exported so standalone CLI commands
// (e.g. "shareguard health") can build a health.Analyzer without the rest
// of the control plane.
func NewScanningSnapshotProvider(scanner *acl.Scanner, cache store.Store, opts acl.Options) health.SnapshotProvider {
	return &scanningSnapshotProvider{scanner: scanner, cache: cache, opts: opts}
}

// SnapshotFor returns path's cached snapshot if it is still valid,
// otherwise scans path fresh and caches the result.
func (p *scanningSnapshotProvider) SnapshotFor(path string) (*acl.Snapshot, error) {
	if entry, ok := p.cache.Get(path); ok && entry.Valid(time.Now(), store.DefaultTTL) {
		return entry.Snapshot, nil
	}

	snap, err := p.scanner.Scan(context.Background(), path, p.opts)
	if err != nil {
		return nil, err
	}
	p.cache.Put(path, snap, time.Time{})
	return snap, nil
}
