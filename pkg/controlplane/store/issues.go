package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/controlplane/models"
	"github.com/shareguard/shareguard/pkg/health"
)

// ============================================
// ISSUE OPERATIONS
// ============================================

func (s *GORMStore) GetIssue(ctx context.Context, key health.Key) (*models.Issue, error) {
	var issue models.Issue
	err := s.db.WithContext(ctx).
		Where("path = ? AND issue_type = ?", key.Path, string(key.IssueType)).
		First(&issue).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrIssueNotFound)
	}
	return &issue, nil
}

func (s *GORMStore) ListIssues(ctx context.Context, status health.Status) ([]*models.Issue, error) {
	var issues []*models.Issue
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if err := q.Order("last_seen DESC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

// UpsertIssue inserts or refreshes the issue for issue.Key(), preserving
// FirstDetected across refreshes the way health.IssueTracker's Upsert
// contract requires (§4.6: a second detection of an already-active issue
// refreshes LastSeen, not FirstDetected).
func (s *GORMStore) UpsertIssue(ctx context.Context, issue health.Issue) (*models.Issue, error) {
	existing, err := s.GetIssue(ctx, issue.Key())
	if err == nil {
		issue.FirstDetected = existing.FirstDetected
		record, buildErr := models.FromHealthIssue(existing.ID, issue)
		if buildErr != nil {
			return nil, buildErr
		}
		if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
			return nil, err
		}
		return record, nil
	}

	record, buildErr := models.FromHealthIssue(uuid.New().String(), issue)
	if buildErr != nil {
		return nil, buildErr
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.ErrDuplicateIssue
		}
		return nil, err
	}
	return record, nil
}

func (s *GORMStore) UpdateIssueStatus(ctx context.Context, id string, status health.Status, changedBy, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issue models.Issue
		if err := tx.Where("id = ?", id).First(&issue).Error; err != nil {
			return convertNotFoundError(err, models.ErrIssueNotFound)
		}

		oldStatus := issue.Status
		if err := tx.Model(&issue).Update("status", string(status)).Error; err != nil {
			return err
		}

		change := &models.IssueStatusChange{
			ID:        uuid.New().String(),
			IssueID:   id,
			OldStatus: oldStatus,
			NewStatus: string(status),
			ChangedBy: changedBy,
			Reason:    reason,
			ChangedAt: time.Now(),
		}
		return tx.Create(change).Error
	})
}

func (s *GORMStore) ListIssueStatusChanges(ctx context.Context, issueID string) ([]*models.IssueStatusChange, error) {
	var changes []*models.IssueStatusChange
	if err := s.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("changed_at ASC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

// IssueTracker returns a health.IssueTracker adapter over this store.
// health.Analyzer calls Get/Upsert with no context and no error return, so
// the adapter runs against context.Background() and logs (rather than
// propagates) any storage failure -- a dropped persistence write degrades
// to "rescanned next cycle", not a crashed analyzer run.
func (s *GORMStore) IssueTracker() health.IssueTracker {
	return &issueTrackerAdapter{store: s}
}

type issueTrackerAdapter struct {
	store *GORMStore
}

func (a *issueTrackerAdapter) Get(key health.Key) (*health.Issue, bool) {
	m, err := a.store.GetIssue(context.Background(), key)
	if err != nil {
		return nil, false
	}
	issue, err := m.ToHealthIssue()
	if err != nil {
		logger.Error("failed to decode stored issue", "path", key.Path, "issue_type", key.IssueType, "error", err)
		return nil, false
	}
	return &issue, true
}

func (a *issueTrackerAdapter) Upsert(issue health.Issue) health.Issue {
	m, err := a.store.UpsertIssue(context.Background(), issue)
	if err != nil {
		logger.Error("failed to persist issue", "path", issue.Path, "issue_type", issue.IssueType, "error", err)
		return issue
	}
	persisted, err := m.ToHealthIssue()
	if err != nil {
		logger.Error("failed to decode persisted issue", "path", issue.Path, "issue_type", issue.IssueType, "error", err)
		return issue
	}
	return persisted
}
