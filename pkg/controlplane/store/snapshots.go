package store

import (
	"context"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/controlplane/models"
)

// ============================================
// SNAPSHOT OPERATIONS
// ============================================

func (s *GORMStore) GetSnapshot(ctx context.Context, path string) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&snap).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrSnapshotNotFound)
	}
	return &snap, nil
}

func (s *GORMStore) ListSnapshots(ctx context.Context) ([]*models.Snapshot, error) {
	var snaps []*models.Snapshot
	if err := s.db.WithContext(ctx).Find(&snaps).Error; err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *GORMStore) PutSnapshot(ctx context.Context, path string, snap *acl.Snapshot, fsMtime time.Time) error {
	record := &models.Snapshot{
		Path:      path,
		ScannedAt: snap.ScannedAt,
		FSMtime:   fsMtime,
		StoredAt:  time.Now(),
		IsStale:   false,
		Checksum:  snap.Checksum,
	}
	if err := record.SetSnapshot(snap); err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("path = ?", path).
		Assign(record).
		FirstOrCreate(&models.Snapshot{Path: path}).Error
}

func (s *GORMStore) MarkSnapshotStale(ctx context.Context, path string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Snapshot{}).
		Where("path = ? OR path LIKE ? OR ? LIKE path || '%'", path, path+"%", path).
		Update("is_stale", true)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (s *GORMStore) DeleteSnapshot(ctx context.Context, path string) error {
	res := s.db.WithContext(ctx).Where("path = ?", path).Delete(&models.Snapshot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrSnapshotNotFound
	}
	return nil
}
