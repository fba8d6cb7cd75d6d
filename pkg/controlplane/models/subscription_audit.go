package models

import (
	"encoding/json"
	"time"
)

// SubscriptionAudit records one connect or disconnect event for a
// notify.Subscription, giving operators a durable trail of who watched
// which paths and when, independent of the in-memory Notification Service
// registry (which forgets everything on restart).
type SubscriptionAudit struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	SubscriptionID string    `gorm:"not null;size:64;index" json:"subscription_id"`
	UserID         string    `gorm:"size:64;index" json:"user_id,omitempty"`
	Event          string    `gorm:"not null;size:16" json:"event"` // connect, disconnect
	RemoteAddr     string    `gorm:"size:64" json:"remote_addr,omitempty"`
	OccurredAt     time.Time `gorm:"not null;index" json:"occurred_at"`

	// Filters is the JSON-encoded notify.Filters snapshot at connect time.
	Filters string `gorm:"type:text" json:"-"`

	ParsedFilters map[string]any `gorm:"-" json:"filters,omitempty"`
}

// TableName returns the table name for SubscriptionAudit.
func (SubscriptionAudit) TableName() string {
	return "subscription_audits"
}

// Event kinds recorded for a subscription.
const (
	SubscriptionEventConnect    = "connect"
	SubscriptionEventDisconnect = "disconnect"
)

// SetFilters encodes an arbitrary filter snapshot as JSON.
func (a *SubscriptionAudit) SetFilters(filters map[string]any) error {
	data, err := json.Marshal(filters)
	if err != nil {
		return err
	}
	a.Filters = string(data)
	a.ParsedFilters = filters
	return nil
}

// GetFilters decodes the stored filter snapshot.
func (a *SubscriptionAudit) GetFilters() (map[string]any, error) {
	if a.ParsedFilters != nil {
		return a.ParsedFilters, nil
	}
	if a.Filters == "" {
		return nil, nil
	}
	var filters map[string]any
	if err := json.Unmarshal([]byte(a.Filters), &filters); err != nil {
		return nil, err
	}
	a.ParsedFilters = filters
	return filters, nil
}
