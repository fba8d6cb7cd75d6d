package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/shareguard/shareguard/pkg/controlplane/models"
)

// ============================================
// SUBSCRIPTION AUDIT OPERATIONS
// ============================================

func (s *GORMStore) RecordSubscriptionEvent(ctx context.Context, audit *models.SubscriptionAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(audit).Error
}

func (s *GORMStore) ListSubscriptionAudits(ctx context.Context, subscriptionID string) ([]*models.SubscriptionAudit, error) {
	var audits []*models.SubscriptionAudit
	if err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("occurred_at ASC").
		Find(&audits).Error; err != nil {
		return nil, err
	}
	return audits, nil
}
