package models

import (
	"encoding/json"
	"time"

	"github.com/shareguard/shareguard/pkg/acl"
)

// Snapshot is the durable counterpart to the in-memory Snapshot Store's
// CacheEntry (pkg/store): the latest scanned ACL state for one path,
// persisted so it survives process restarts and feeds the change/health
// pipelines without requiring a full re-scan on every boot.
type Snapshot struct {
	Path      string    `gorm:"primaryKey;size:4096" json:"path"`
	ScannedAt time.Time `gorm:"not null;index" json:"scanned_at"`
	FSMtime   time.Time `json:"fs_mtime,omitempty"`
	StoredAt  time.Time `gorm:"autoUpdateTime" json:"stored_at"`
	IsStale   bool      `gorm:"not null;default:false;index" json:"is_stale"`
	Checksum  string    `gorm:"size:64;index" json:"checksum"`

	// Data is the JSON-encoded *acl.Snapshot (owner, ACEs, inheritance,
	// scan statistics). Kept as a blob rather than normalized columns
	// because it is write-once-per-scan and read-whole.
	Data string `gorm:"type:text" json:"-"`

	// Parsed is the in-memory decoded form of Data, populated lazily by
	// GetSnapshot and not persisted directly.
	Parsed *acl.Snapshot `gorm:"-" json:"snapshot,omitempty"`
}

// TableName returns the table name for Snapshot.
func (Snapshot) TableName() string {
	return "snapshots"
}

// GetSnapshot returns the decoded *acl.Snapshot, decoding Data on first use.
func (s *Snapshot) GetSnapshot() (*acl.Snapshot, error) {
	if s.Parsed != nil {
		return s.Parsed, nil
	}
	if s.Data == "" {
		return nil, nil
	}
	var snap acl.Snapshot
	if err := json.Unmarshal([]byte(s.Data), &snap); err != nil {
		return nil, err
	}
	s.Parsed = &snap
	return s.Parsed, nil
}

// SetSnapshot encodes snap into Data and caches the parsed value.
func (s *Snapshot) SetSnapshot(snap *acl.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.Data = string(data)
	s.Parsed = snap
	return nil
}
