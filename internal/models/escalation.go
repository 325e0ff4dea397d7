package models

import (
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
)

type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "PENDING"
	EscalationApproved EscalationStatus = "APPROVED"
	EscalationRejected EscalationStatus = "REJECTED"
)

type EscalationOrigin string

const (
	OriginAutomatic EscalationOrigin = "AUTOMATIC"
	OriginManual    EscalationOrigin = "MANUAL"
)

// EscalationRequest asks for a petty cash top-up.
//
// OpenAutoGuard carries the period while the request is Pending and Automatic and
// is NULL otherwise; its unique index keeps one open automatic request per account
// even if two writers race past the application check.
type EscalationRequest struct {
	ID              string           `gorm:"primaryKey;size:36"`
	Period          string           `gorm:"size:16;not null;index"`
	RequestedAmount int64            `gorm:"not null"`
	ApprovedAmount  *int64
	Justification   string           `gorm:"size:1024"`
	Status          EscalationStatus `gorm:"size:16;not null;index"`
	Origin          EscalationOrigin `gorm:"size:16;not null"`
	OpenAutoGuard   *string          `gorm:"size:16;uniqueIndex" json:"-"`
	RequestedBy     string           `gorm:"size:64"`
	ResolvedBy      string           `gorm:"size:64"`
	ResolutionNote  string           `gorm:"size:512"`
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

func (r *EscalationRequest) IsOpenAutomatic() bool {
	return r.Status == EscalationPending && r.Origin == OriginAutomatic
}

// Resolve moves a pending request to its terminal status exactly once.
func (r *EscalationRequest) Resolve(status EscalationStatus, approver string, approved *int64, note string, at time.Time) error {
	if r.Status != EscalationPending {
		return apperr.AlreadyResolved(r.ID, string(r.Status))
	}
	if status != EscalationApproved && status != EscalationRejected {
		return apperr.InvalidInput("unknown escalation decision %q", status)
	}
	r.Status = status
	r.ApprovedAmount = approved
	r.ResolvedBy = approver
	r.ResolutionNote = note
	r.ResolvedAt = &at
	r.OpenAutoGuard = nil
	return nil
}
