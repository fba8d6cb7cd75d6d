package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/controlplane/models"
)

// ============================================
// CHANGE HISTORY OPERATIONS
// ============================================

func (s *GORMStore) RecordChange(ctx context.Context, path string, cs *change.ChangeSet, detectedAt time.Time) (string, error) {
	record := &models.ChangeRecord{
		ID:         uuid.New().String(),
		Path:       path,
		DetectedAt: detectedAt,
	}
	if err := record.SetChangeSet(cs); err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *GORMStore) ListChangesForPath(ctx context.Context, path string, limit int) ([]*models.ChangeRecord, error) {
	var records []*models.ChangeRecord
	q := s.db.WithContext(ctx).Where("path = ?", path).Order("detected_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GORMStore) ListChangesSince(ctx context.Context, since time.Time) ([]*models.ChangeRecord, error) {
	var records []*models.ChangeRecord
	if err := s.db.WithContext(ctx).
		Where("detected_at >= ?", since).
		Order("detected_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
