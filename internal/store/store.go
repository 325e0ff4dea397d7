// Package store defines the repositories the ledgers and the requisition workflow
// read and write through. All mutation goes through these interfaces so locking
// and transactions stay in one place.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/models"
)

// ErrNotFound is returned by Get-style lookups that match no row.
var ErrNotFound = errors.New("store: record not found")

type AreaRepository interface {
	Create(ctx context.Context, a *models.Area) error
	Get(ctx context.Context, id string) (*models.Area, error)
	List(ctx context.Context) ([]models.Area, error)
}

type BudgetRepository interface {
	Create(ctx context.Context, b *models.Budget) error
	Get(ctx context.Context, areaID, period string) (*models.Budget, error)
	Save(ctx context.Context, b *models.Budget) error
	ListByPeriod(ctx context.Context, period string) ([]models.Budget, error)
}

type PettyCashRepository interface {
	Create(ctx context.Context, a *models.PettyCashAccount) error
	Get(ctx context.Context, period string) (*models.PettyCashAccount, error)
	Save(ctx context.Context, a *models.PettyCashAccount) error
}

type EscalationFilter struct {
	Period string
	Status models.EscalationStatus
}

type EscalationRepository interface {
	Create(ctx context.Context, r *models.EscalationRequest) error
	Get(ctx context.Context, id string) (*models.EscalationRequest, error)
	Save(ctx context.Context, r *models.EscalationRequest) error
	// FindOpenAutomatic returns the Pending+Automatic request of a period, or ErrNotFound.
	FindOpenAutomatic(ctx context.Context, period string) (*models.EscalationRequest, error)
	List(ctx context.Context, f EscalationFilter) ([]models.EscalationRequest, error)
}

type RequisitionFilter struct {
	Period string
	AreaID string
	State  models.RequisitionState
	Page   int
	Size   int
}

type RequisitionRepository interface {
	Create(ctx context.Context, r *models.Requisition) error
	Get(ctx context.Context, id string) (*models.Requisition, error)
	Save(ctx context.Context, r *models.Requisition) error
	List(ctx context.Context, f RequisitionFilter) ([]models.Requisition, int64, error)
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Actor      string
	From       time.Time
	To         time.Time
	Page       int
	Size       int
}

// AuditRepository is append-only: there is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	List(ctx context.Context, f AuditFilter) ([]models.AuditEntry, int64, error)
}

type SequenceRepository interface {
	// Next increments and returns the counter for (name, period), starting at 1.
	Next(ctx context.Context, name, period string) (int64, error)
}

// Store groups the repositories. Tx runs fn against a transactional Store; every
// write fn performs commits or rolls back together. Tx on a Store that is already
// transactional runs fn in the same transaction.
type Store interface {
	Areas() AreaRepository
	Budgets() BudgetRepository
	PettyCash() PettyCashRepository
	Escalations() EscalationRepository
	Requisitions() RequisitionRepository
	Audit() AuditRepository
	Sequences() SequenceRepository
	Tx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// normalizePage applies the same paging bounds the HTTP layer documents.
func normalizePage(page, size, def int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = def
	}
	return page, size
}
