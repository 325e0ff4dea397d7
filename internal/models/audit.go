package models

import "time"

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// AuditEntry is an immutable record of one transition or ledger mutation.
// Snapshot holds {"before": ..., "after": ...} as JSON.
type AuditEntry struct {
	ID         string `gorm:"primaryKey;size:36"`
	EntityType string `gorm:"size:32;not null;index:idx_audit_entity"`
	EntityID   string `gorm:"size:64;not null;index:idx_audit_entity"`
	Action     string `gorm:"size:32;not null"`
	FromState  string `gorm:"size:32"`
	ToState    string `gorm:"size:32"`
	Actor      string `gorm:"size:64;index"`
	Outcome    string `gorm:"size:8;not null"`
	Error      string `gorm:"size:1024"`
	Flagged    bool   `gorm:"not null;default:false"` // budget override exceptions
	Snapshot   string `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

// Sequence backs per-period monotonic numbering (requisition and committee numbers).
type Sequence struct {
	Name   string `gorm:"primaryKey;size:32"`
	Period string `gorm:"primaryKey;size:16"`
	Value  int64  `gorm:"not null"`
}
