// Package store provides the control plane persistence layer.
//
// This package implements the Store interface for managing ShareGuard's
// durable state: scanned snapshots, change history, health issues, score
// history, and subscription audit trail.
//
// The Store interface is composed of focused sub-interfaces, each grouping
// related operations by entity. Consumers should accept the narrowest
// sub-interface they need for improved testability and explicit
// dependencies: a handler that only ever lists change history should
// depend on ChangeStore, not the full Store.
//
// Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (HA-capable)
package store

import (
	"context"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/controlplane/models"
	"github.com/shareguard/shareguard/pkg/health"
)

// SnapshotStore persists the latest scanned ACL state for each watched
// path, durable across process restarts. It is the durable counterpart to
// the in-memory Snapshot Store (pkg/store), not a replacement for it: the
// scan/monitor hot path reads and writes pkg/store directly, and the API
// layer reaches into SnapshotStore for recovery and historical queries.
type SnapshotStore interface {
	// GetSnapshot returns the stored snapshot for path.
	// Returns models.ErrSnapshotNotFound if none exists.
	GetSnapshot(ctx context.Context, path string) (*models.Snapshot, error)

	// ListSnapshots returns every stored snapshot. Use with caution for
	// large watched trees.
	ListSnapshots(ctx context.Context) ([]*models.Snapshot, error)

	// PutSnapshot upserts the snapshot for its path, clearing staleness.
	PutSnapshot(ctx context.Context, path string, snap *acl.Snapshot, fsMtime time.Time) error

	// MarkSnapshotStale marks path's stored snapshot stale without
	// deleting it, mirroring pkg/store.Store.MarkStale's semantics for
	// the durable layer.
	MarkSnapshotStale(ctx context.Context, path string) error

	// DeleteSnapshot removes the stored snapshot for path.
	// Returns models.ErrSnapshotNotFound if none exists.
	DeleteSnapshot(ctx context.Context, path string) error
}

// ChangeStore persists the append-only change history produced by diffing
// successive snapshots (§4.5).
type ChangeStore interface {
	// RecordChange appends a ChangeRecord for path. The record ID is
	// generated if empty. Returns the generated ID.
	RecordChange(ctx context.Context, path string, cs *change.ChangeSet, detectedAt time.Time) (string, error)

	// ListChangesForPath returns a path's change history, most recent
	// first, capped at limit (0 means no cap).
	ListChangesForPath(ctx context.Context, path string, limit int) ([]*models.ChangeRecord, error)

	// ListChangesSince returns every change recorded at or after since,
	// most recent first.
	ListChangesSince(ctx context.Context, since time.Time) ([]*models.ChangeRecord, error)
}

// IssueStore persists detected health issues (§4.6) and exposes the
// ctx-ful, error-returning CRUD surface the API layer needs. health.Issue
// has no identity field of its own, so IssueStore is keyed the same way
// health.IssueTracker is: by health.Key{Path, IssueType}.
type IssueStore interface {
	// GetIssue returns the issue for key, if one exists.
	GetIssue(ctx context.Context, key health.Key) (*models.Issue, error)

	// ListIssues returns stored issues. An empty status matches every
	// status.
	ListIssues(ctx context.Context, status health.Status) ([]*models.Issue, error)

	// UpsertIssue inserts or refreshes the issue for issue.Key(),
	// preserving FirstDetected across refreshes.
	UpsertIssue(ctx context.Context, issue health.Issue) (*models.Issue, error)

	// UpdateIssueStatus transitions a stored issue's lifecycle status
	// (§4.6: active, resolved, ignored), recording an IssueStatusChange
	// audit row naming who made the change and why. changedBy and reason
	// may be empty.
	// Returns models.ErrIssueNotFound if no issue has this ID.
	UpdateIssueStatus(ctx context.Context, id string, status health.Status, changedBy, reason string) error

	// ListIssueStatusChanges returns the audit trail for one issue,
	// oldest first.
	ListIssueStatusChanges(ctx context.Context, issueID string) ([]*models.IssueStatusChange, error)

	// IssueTracker returns a health.IssueTracker view of this store,
	// bridging its ctx-less, error-less method signatures onto the GORM
	// backend for direct use by a health.Analyzer.
	IssueTracker() health.IssueTracker
}

// ScoreHistoryStore persists the append-only aggregate score history
// (§4.6) and exposes the ctx-ful, error-returning CRUD surface the API
// layer needs.
type ScoreHistoryStore interface {
	// RecordScorePoint appends a score history sample.
	RecordScorePoint(ctx context.Context, point health.ScoreHistoryPoint) error

	// ListScoreHistory returns every sample recorded at or after since,
	// oldest first.
	ListScoreHistory(ctx context.Context, since time.Time) ([]*models.ScoreHistoryPoint, error)

	// ScoreRecorder returns a health.ScoreRecorder view of this store,
	// bridging its ctx-less, error-less method signature onto the GORM
	// backend for direct use by a health.Analyzer.
	ScoreRecorder() health.ScoreRecorder
}

// SubscriptionAuditStore persists connect/disconnect events for
// notify.Subscription, independent of the Notification Service's
// in-memory registry.
type SubscriptionAuditStore interface {
	// RecordSubscriptionEvent appends a connect or disconnect record.
	RecordSubscriptionEvent(ctx context.Context, audit *models.SubscriptionAudit) error

	// ListSubscriptionAudits returns the audit trail for one
	// subscription ID, oldest first.
	ListSubscriptionAudits(ctx context.Context, subscriptionID string) ([]*models.SubscriptionAudit, error)
}

// SystemHealthStore provides store health check and lifecycle operations,
// used by the HTTP health check endpoints and graceful shutdown. Named
// distinctly from the health package's Issue/score domain to avoid
// confusion between "is the database reachable" and "is this ACL state
// healthy".
type SystemHealthStore interface {
	// Healthcheck verifies the store is operational.
	Healthcheck(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Store is the composite control plane persistence interface.
type Store interface {
	SnapshotStore
	ChangeStore
	IssueStore
	ScoreHistoryStore
	SubscriptionAuditStore
	SystemHealthStore
}
