package models

import "errors"

// Common errors for persisted control-plane entities.
var (
	// Snapshot errors
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Change record errors
	ErrChangeRecordNotFound = errors.New("change record not found")

	// Issue errors
	ErrIssueNotFound  = errors.New("issue not found")
	ErrDuplicateIssue = errors.New("issue already exists for path and type")

	// Score history errors
	ErrScoreHistoryNotFound = errors.New("score history point not found")

	// Subscription audit errors
	ErrSubscriptionAuditNotFound = errors.New("subscription audit record not found")
)
