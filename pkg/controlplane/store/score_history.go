package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/controlplane/models"
	"github.com/shareguard/shareguard/pkg/health"
)

// ============================================
// SCORE HISTORY OPERATIONS
// ============================================

func (s *GORMStore) RecordScorePoint(ctx context.Context, point health.ScoreHistoryPoint) error {
	record, err := models.FromHealthScorePoint(uuid.New().String(), point)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *GORMStore) ListScoreHistory(ctx context.Context, since time.Time) ([]*models.ScoreHistoryPoint, error) {
	var points []*models.ScoreHistoryPoint
	if err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// ScoreRecorder returns a health.ScoreRecorder adapter over this store.
// health.Analyzer calls Record with no context and no error return, so
// storage failures are logged rather than propagated.
func (s *GORMStore) ScoreRecorder() health.ScoreRecorder {
	return &scoreRecorderAdapter{store: s}
}

type scoreRecorderAdapter struct {
	store *GORMStore
}

func (a *scoreRecorderAdapter) Record(point health.ScoreHistoryPoint) {
	if err := a.store.RecordScorePoint(context.Background(), point); err != nil {
		logger.Error("failed to persist score history point", "timestamp", point.Timestamp, "error", err)
	}
}
