package acl

import (
	"context"
	"strings"
	"time"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/internal/workerpool"
	"github.com/shareguard/shareguard/pkg/group"
	"github.com/shareguard/shareguard/pkg/metrics"
	"github.com/shareguard/shareguard/pkg/principal"
)

// DefaultExcludedPaths is the default exclusion prefix list (§4.3).
var DefaultExcludedPaths = []string{
	`C:\Windows\`,
	`C:\Program Files\`,
	`C:\Program Files (x86)\`,
}

// DefaultMaxDepth is the default recursion cap for subfolder scans.
const DefaultMaxDepth = 5

// Options configures one Scan call.
type Options struct {
	IncludeSubfolders bool
	MaxDepth          int // 0 means "root only"
	ExcludedPaths     []string
}

// Scanner enumerates a directory tree and emits normalized Snapshots.
type Scanner struct {
	dacl     DACLReader
	resolver *principal.Resolver
	tracer   *group.Tracer
	pool     *workerpool.Pool
	metrics  *metrics.Metrics
}

// NewScanner constructs a Scanner from its platform and resolution
// dependencies.
func NewScanner(dacl DACLReader, resolver *principal.Resolver, tracer *group.Tracer) *Scanner {
	return &Scanner{dacl: dacl, resolver: resolver, tracer: tracer}
}

// WithPool bounds the Scanner's DACL reads through pool rather than
// calling the platform syscall directly on the caller's goroutine. Pass a
// started *workerpool.Pool; a nil pool (the default) reads DACLs inline.
func (s *Scanner) WithPool(pool *workerpool.Pool) *Scanner {
	s.pool = pool
	return s
}

// WithMetrics attaches m so every Scan call records duration, ACE count,
// and outcome. A nil m (the default) disables instrumentation.
func (s *Scanner) WithMetrics(m *metrics.Metrics) *Scanner {
	s.metrics = m
	return s
}

// Scan scans path and, if opts.IncludeSubfolders is set, its descendants up
// to opts.MaxDepth, returning a single Snapshot for path with aggregate
// statistics from the whole subtree.
func (s *Scanner) Scan(ctx context.Context, path string, opts Options) (*Snapshot, error) {
	started := time.Now()
	snap, err := s.scan(ctx, path, opts)
	aceCount := 0
	if snap != nil {
		aceCount = len(snap.ACEs)
	}
	s.metrics.ObserveScan(time.Since(started), aceCount, err)
	return snap, err
}

func (s *Scanner) scan(ctx context.Context, path string, opts Options) (*Snapshot, error) {
	excluded := opts.ExcludedPaths
	if excluded == nil {
		excluded = DefaultExcludedPaths
	}

	if isExcluded(path, excluded) {
		return nil, NewScanError(path, ReasonExcluded, nil)
	}

	snap, err := s.scanOne(ctx, path)
	if err != nil {
		return nil, err
	}

	if opts.IncludeSubfolders {
		stats := subtreeStats{totalFolders: 1, processedFolders: 1, systemACEs: snap.SystemACEs, nonSystemACEs: snap.NonSystemACEs}
		s.scanChildren(ctx, path, opts.MaxDepth, excluded, &stats)
		snap.TotalFolders = stats.totalFolders
		snap.ProcessedFolders = stats.processedFolders
		snap.ErrorCount = stats.errorCount
		snap.SystemACEs = stats.systemACEs
		snap.NonSystemACEs = stats.nonSystemACEs
	} else {
		snap.TotalFolders = 1
		snap.ProcessedFolders = 1
	}

	return snap, nil
}

type subtreeStats struct {
	totalFolders     int
	processedFolders int
	errorCount       int
	systemACEs       int
	nonSystemACEs    int
}

// scanChildren recurses into path's subdirectories, isolating per-subdir
// errors so they never abort the parent scan (§4.3).
func (s *Scanner) scanChildren(ctx context.Context, path string, depth int, excluded []string, stats *subtreeStats) {
	if depth <= 0 {
		return
	}

	children, err := s.dacl.ListSubdirectories(path)
	if err != nil {
		stats.errorCount++
		return
	}

	for _, child := range children {
		select {
		case <-ctx.Done():
			return
		default:
		}

		stats.totalFolders++

		if isExcluded(child, excluded) {
			continue
		}

		childSnap, err := s.scanOne(ctx, child)
		if err != nil {
			stats.errorCount++
			logger.Warn("subfolder scan failed", logger.Path(child), logger.Err(err))
			continue
		}
		stats.processedFolders++
		stats.systemACEs += childSnap.SystemACEs
		stats.nonSystemACEs += childSnap.NonSystemACEs

		s.scanChildren(ctx, child, depth-1, excluded, stats)
	}
}

// readDACL reads path's raw DACL, dispatching the blocking platform call
// through s.pool when one is configured so a watch set with many paths
// never spawns unbounded concurrent syscalls.
func (s *Scanner) readDACL(ctx context.Context, path string) (*RawDACL, error) {
	if s.pool == nil {
		return s.dacl.ReadDACL(path)
	}
	return workerpool.Dispatch(ctx, s.pool, func(ctx context.Context) (*RawDACL, error) {
		return s.dacl.ReadDACL(path)
	})
}

// scanOne reads and normalizes the DACL of exactly one path, with no
// recursion.
func (s *Scanner) scanOne(ctx context.Context, path string) (*Snapshot, error) {
	raw, err := s.readDACL(ctx, path)
	if err != nil {
		return nil, NewScanError(path, ReasonPermissionDenied, err)
	}

	owner := s.resolver.Resolve(raw.OwnerSID)
	var primaryGroup *principal.Principal
	if raw.PrimaryGroupSID != "" {
		primaryGroup = s.resolver.Resolve(raw.PrimaryGroupSID)
	}

	aces := make([]ACE, 0, len(raw.ACEs))
	systemACEs, nonSystemACEs := 0, 0
	for _, r := range raw.ACEs {
		trustee := s.resolver.Resolve(r.TrusteeSID)
		if trustee.IsSystem {
			systemACEs++
		} else {
			nonSystemACEs++
		}
		aces = append(aces, ACE{
			Trustee:     trustee,
			Type:        r.Type,
			Inherited:   r.Inherited,
			Permissions: r.Permissions,
		})
	}

	aces = Consolidate(aces)
	s.annotateAccessPaths(owner, aces)

	checksum := Checksum(owner, raw.InheritanceEnabled, aces)

	return &Snapshot{
		Path:               path,
		ScannedAt:          time.Now(),
		Owner:              owner,
		PrimaryGroup:       primaryGroup,
		InheritanceEnabled: raw.InheritanceEnabled,
		ACEs:               aces,
		Checksum:           checksum,
		SystemACEs:         systemACEs,
		NonSystemACEs:       nonSystemACEs,
	}, nil
}

// annotateAccessPaths fills each ACE's AccessPaths: a direct grant when the
// trustee is the owner or the ACE's own trustee, and one MembershipPath per
// group the trustee belongs to whose full_name also appears as an ACE
// trustee on this snapshot.
func (s *Scanner) annotateAccessPaths(owner *principal.Principal, aces []ACE) {
	trusteeOnPath := make(map[string]bool, len(aces))
	for _, a := range aces {
		trusteeOnPath[a.Trustee.FullName] = true
	}

	for i := range aces {
		ace := &aces[i]
		var paths []AccessPath

		direct := ace.Trustee.FullName == owner.FullName || trusteeOnPath[ace.Trustee.FullName]
		if direct {
			paths = append(paths, AccessPath{Direct: true})
		}

		if ace.Trustee.Kind == principal.KindUser {
			for _, g := range s.tracer.GroupsOf(ace.Trustee) {
				if !trusteeOnPath[g.FullName] {
					continue
				}
				paths = append(paths, AccessPath{Groups: []string{g.FullName}})
			}
		}

		ace.AccessPaths = paths
	}
}

func isExcluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
