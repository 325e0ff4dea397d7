package models

import "time"

// RequisitionState is the closed set of workflow states. Transitions between them
// are defined in package requisition.
type RequisitionState string

const (
	StatePending                RequisitionState = "PENDING"
	StateApproved               RequisitionState = "APPROVED"
	StatePendingTreasuryPayment RequisitionState = "PENDING_TREASURY_PAYMENT"
	StatePendingPettyCash       RequisitionState = "PENDING_PETTY_CASH"
	StatePendingInventory       RequisitionState = "PENDING_INVENTORY"
	StateDelivered              RequisitionState = "DELIVERED"
	StateRejected               RequisitionState = "REJECTED"
)

func (s RequisitionState) Terminal() bool {
	return s == StateDelivered || s == StateRejected
}

type PaymentRoute string

const (
	RouteTreasury  PaymentRoute = "TREASURY"
	RoutePettyCash PaymentRoute = "PETTY_CASH"
	RouteInventory PaymentRoute = "INVENTORY"
)

func (r PaymentRoute) Valid() bool {
	switch r {
	case RouteTreasury, RoutePettyCash, RouteInventory:
		return true
	}
	return false
}

// Requisition is a purchase/expense request. It is never deleted; rejected ones
// stay for audit.
type Requisition struct {
	ID               string           `gorm:"primaryKey;size:36"`
	Number           string           `gorm:"size:32;not null;uniqueIndex"`
	Period           string           `gorm:"size:16;not null;index"`
	AreaID           string           `gorm:"size:64;not null;index"`
	Account          string           `gorm:"size:32;not null"` // chart-of-accounts code
	Concept          string           `gorm:"size:512"`
	Provider         string           `gorm:"size:128"`
	AmountBase       int64            `gorm:"not null"`
	AmountTax        int64            `gorm:"not null;default:0"`
	AmountTotal      int64            `gorm:"not null"`
	State            RequisitionState `gorm:"size:32;not null;index"`
	PaymentRoute     PaymentRoute     `gorm:"size:16"`
	RequiresDelivery bool             `gorm:"not null;default:false"`
	BudgetOverride   bool             `gorm:"not null;default:false"`
	CommitteeNumber  string           `gorm:"size:32"`

	RequestedBy     string `gorm:"size:64;not null"`
	ApprovedBy      string `gorm:"size:64"`
	RejectedBy      string `gorm:"size:64"`
	RejectionReason string `gorm:"size:512"`
	PaidBy          string `gorm:"size:64"`
	DeliveredTo     string `gorm:"size:64"`

	SubmittedAt time.Time `gorm:"index"`
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
	RoutedAt    *time.Time
	PaidAt      *time.Time
	DeliveredAt *time.Time
	UpdatedAt   time.Time
}
