package models

import (
	"encoding/json"
	"time"

	"github.com/shareguard/shareguard/pkg/change"
)

// ChangeRecord is a persisted, append-only entry in a path's change
// history: one significant ChangeSet produced by diffing two successive
// snapshots (§4.5).
type ChangeRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Path       string    `gorm:"not null;size:4096;index" json:"path"`
	DetectedAt time.Time `gorm:"not null;index" json:"detected_at"`

	// Data is the JSON-encoded *change.ChangeSet.
	Data string `gorm:"type:text" json:"-"`

	Parsed *change.ChangeSet `gorm:"-" json:"change_set,omitempty"`
}

// TableName returns the table name for ChangeRecord.
func (ChangeRecord) TableName() string {
	return "change_records"
}

// GetChangeSet returns the decoded *change.ChangeSet, decoding Data on
// first use.
func (c *ChangeRecord) GetChangeSet() (*change.ChangeSet, error) {
	if c.Parsed != nil {
		return c.Parsed, nil
	}
	if c.Data == "" {
		return nil, nil
	}
	var cs change.ChangeSet
	if err := json.Unmarshal([]byte(c.Data), &cs); err != nil {
		return nil, err
	}
	c.Parsed = &cs
	return c.Parsed, nil
}

// SetChangeSet encodes cs into Data and caches the parsed value.
func (c *ChangeRecord) SetChangeSet(cs *change.ChangeSet) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	c.Data = string(data)
	c.Parsed = cs
	return nil
}
