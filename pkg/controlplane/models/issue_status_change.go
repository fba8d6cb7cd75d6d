package models

import "time"

// IssueStatusChange is an audit record of one lifecycle transition on an
// Issue (active -> resolved -> ignored, etc.), supplementing the closed
// health.Status contract with who made the change and why.
type IssueStatusChange struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	IssueID   string    `gorm:"not null;size:36;index" json:"issue_id"`
	OldStatus string    `gorm:"not null;size:16" json:"old_status"`
	NewStatus string    `gorm:"not null;size:16" json:"new_status"`
	ChangedBy string    `gorm:"size:255" json:"changed_by,omitempty"`
	Reason    string    `gorm:"size:1024" json:"reason,omitempty"`
	ChangedAt time.Time `gorm:"not null;index" json:"changed_at"`
}

// TableName returns the table name for IssueStatusChange.
func (IssueStatusChange) TableName() string {
	return "issue_status_changes"
}
