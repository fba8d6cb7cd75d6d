// Package controlplane wires ShareGuard's components into a single runnable
// process: the durable controlplane store, the in-memory Snapshot Store
// cache, the ACL Scanner, the Monitor Loop, the Health Analyzer, the
// Notification Service, and the REST/WebSocket API server.
//
// Usage:
//
//	cp, err := controlplane.New(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cp.Close()
//
//	if err := cp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package controlplane

import (
	"context"
	"fmt"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/controlplane/api"
	cpstore "github.com/shareguard/shareguard/pkg/controlplane/store"
	"github.com/shareguard/shareguard/pkg/group"
	"github.com/shareguard/shareguard/pkg/health"
	"github.com/shareguard/shareguard/pkg/metrics"
	"github.com/shareguard/shareguard/pkg/monitor"
	"github.com/shareguard/shareguard/pkg/notify"
	"github.com/shareguard/shareguard/pkg/principal"
	memstore "github.com/shareguard/shareguard/pkg/store"
)

// ControlPlane is the central management component for ShareGuard.
//
// It owns and coordinates:
//   - Store: durable configuration and history (issues, score history,
//     snapshots, subscription audit) via cpstore.Store
//   - Scanner: on-demand ACL enumeration of a path
//   - Monitor: the periodic scan-diff-notify loop over a watched set
//   - Analyzer: the Health Analyzer, run on demand or scheduled externally
//   - Notifier: the Notification Service fan-out and websocket transport
//   - API Server: REST/WebSocket API (optional)
type ControlPlane struct {
	store     cpstore.Store
	scanner   *acl.Scanner
	monitor   *monitor.Loop
	analyzer  *health.Analyzer
	notifier  *notify.Service
	apiServer *api.Server
}

// Options configures the ControlPlane.
type Options struct {
	// Database configures the durable controlplane store.
	Database *cpstore.Config

	// Scan configures the default options an on-demand or monitored scan
	// uses unless overridden per request.
	Scan acl.Options

	// Monitor configures the periodic scan-diff-notify loop.
	Monitor monitor.Options

	// HealthDetectors configures the Health Analyzer's detector
	// thresholds. Zero value is invalid; use health.DefaultDetectorConfig().
	HealthDetectors health.DetectorConfig

	// NotifyQueueCapacity bounds the Notification Service's fan-out
	// queue. Zero uses notify.DefaultQueueCapacity.
	NotifyQueueCapacity int

	// API configures the REST/WebSocket API server. Leave nil to run
	// without an API server (e.g. a scan-only CLI invocation).
	API *api.Config
}

// New creates a new ControlPlane with the given options.
//
// This initializes the durable store, the Snapshot Store cache, the ACL
// Scanner (against the platform DACL reader), the Monitor Loop, the Health
// Analyzer, the Notification Service, and the API server (if configured).
// Call Close() when done to release resources, and Start(ctx) to begin
// serving (API) and monitoring (Monitor Loop).
func New(ctx context.Context, opts *Options) (*ControlPlane, error) {
	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}
	if opts.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	cpStore, err := cpstore.New(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	m := metrics.New(nil)

	resolver := principal.NewResolver(principal.NewWindowsLookup())
	tracer := group.NewTracer(group.NewWindowsGroups(resolver))
	scanner := acl.NewScanner(acl.NewWindowsDACLReader(), resolver, tracer).WithMetrics(m)

	detectorConfig := opts.HealthDetectors
	if detectorConfig.MaxACECount == 0 {
		// Zero value is invalid (see health.DetectorConfig's doc comment),
		// so an unset MaxACECount means the caller didn't configure one.
		detectorConfig = health.DefaultDetectorConfig()
	}

	snapshots := memstore.NewMemoryStore().WithMetrics(m)
	snapProvider := NewScanningSnapshotProvider(scanner, snapshots, opts.Scan)
	analyzer := health.NewAnalyzer(snapProvider, cpStore.IssueTracker(), cpStore.ScoreRecorder(), detectorConfig).WithMetrics(m)

	notifier := notify.NewService(opts.NotifyQueueCapacity).WithMetrics(m)

	monitorOpts := opts.Monitor
	monitorOpts.ScanOptions = opts.Scan
	loop := monitor.NewLoop(scanner, snapshots, notifier, monitorOpts).WithMetrics(m)

	cp := &ControlPlane{
		store:    cpStore,
		scanner:  scanner,
		monitor:  loop,
		analyzer: analyzer,
		notifier: notifier,
	}

	if opts.API != nil {
		apiServer, err := api.NewServer(ctx, *opts.API, api.RouterDeps{
			Store:    cpStore,
			Scanner:  scanner,
			ScanOpts: opts.Scan,
			Analyzer: analyzer,
			Monitor:  loop,
			Notifier: notifier,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create API server: %w", err)
		}
		cp.apiServer = apiServer
		logger.Info("control plane API server initialized", "addr", opts.API.ListenAddr)
	}

	return cp, nil
}

// Start begins serving: the API server, if configured. It blocks until ctx
// is cancelled or the API server fails. The Monitor Loop runs independently
// of Start/ctx -- callers populate its watch set via Monitor().Start(paths...)
// and stop it via Close.
func (cp *ControlPlane) Start(ctx context.Context) error {
	if cp.apiServer == nil {
		<-ctx.Done()
		return nil
	}
	return cp.apiServer.Start(ctx)
}

// Store returns the durable controlplane store.
func (cp *ControlPlane) Store() cpstore.Store {
	return cp.store
}

// Scanner returns the ACL Scanner for on-demand scans outside the API
// (e.g. a CLI `scan` subcommand).
func (cp *ControlPlane) Scanner() *acl.Scanner {
	return cp.scanner
}

// Monitor returns the Monitor Loop so callers (e.g. cmd/shareguard) can
// populate the initial watch set before Start blocks.
func (cp *ControlPlane) Monitor() *monitor.Loop {
	return cp.monitor
}

// Analyzer returns the Health Analyzer for scheduled or CLI-triggered runs.
func (cp *ControlPlane) Analyzer() *health.Analyzer {
	return cp.analyzer
}

// Notifier returns the Notification Service.
func (cp *ControlPlane) Notifier() *notify.Service {
	return cp.notifier
}

// APIServer returns the API server (may be nil if not enabled).
func (cp *ControlPlane) APIServer() *api.Server {
	return cp.apiServer
}

// Close releases all resources held by the ControlPlane: stops the Monitor
// Loop, the Notification Service's processor, and closes the durable
// store's connection pool.
func (cp *ControlPlane) Close() error {
	cp.monitor.Stop()
	cp.notifier.Stop()
	return cp.store.Close()
}
