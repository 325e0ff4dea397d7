package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/CXmiloxx/secop-app-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore implements Store on top of gorm. Inside a transaction, rows read for
// mutation are locked with SELECT ... FOR UPDATE on PostgreSQL; SQLite already
// serializes writers.
type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGorm wraps an opened gorm connection.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Areas() AreaRepository               { return areaRepo{s} }
func (s *gormStore) Budgets() BudgetRepository           { return budgetRepo{s} }
func (s *gormStore) PettyCash() PettyCashRepository      { return pettyCashRepo{s} }
func (s *gormStore) Escalations() EscalationRepository   { return escalationRepo{s} }
func (s *gormStore) Requisitions() RequisitionRepository { return requisitionRepo{s} }
func (s *gormStore) Audit() AuditRepository              { return auditRepo{s} }
func (s *gormStore) Sequences() SequenceRepository       { return sequenceRepo{s} }

func (s *gormStore) Tx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx, inTx: true})
	})
}

func (s *gormStore) q(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate is the read used before a mutation.
func (s *gormStore) forUpdate(ctx context.Context) *gorm.DB {
	q := s.q(ctx)
	if s.inTx && s.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *gormStore) write(ctx context.Context) *gorm.DB {
	return s.q(ctx).Omit(clause.Associations)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---------- areas ----------

type areaRepo struct{ s *gormStore }

func (r areaRepo) Create(ctx context.Context, a *models.Area) error {
	if err := r.s.write(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create area: %w", err)
	}
	return nil
}

func (r areaRepo) Get(ctx context.Context, id string) (*models.Area, error) {
	var a models.Area
	if err := r.s.q(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r areaRepo) List(ctx context.Context) ([]models.Area, error) {
	var out []models.Area
	if err := r.s.q(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return out, nil
}

// ---------- budgets ----------

type budgetRepo struct{ s *gormStore }

func (r budgetRepo) Create(ctx context.Context, b *models.Budget) error {
	if err := r.s.write(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r budgetRepo) Get(ctx context.Context, areaID, period string) (*models.Budget, error) {
	var b models.Budget
	err := r.s.forUpdate(ctx).
		Where("area_id = ? AND period = ?", areaID, period).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r budgetRepo) Save(ctx context.Context, b *models.Budget) error {
	if err := r.s.write(ctx).Save(b).Error; err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (r budgetRepo) ListByPeriod(ctx context.Context, period string) ([]models.Budget, error) {
	var out []models.Budget
	if err := r.s.q(ctx).Where("period = ?", period).Order("area_id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

// ---------- petty cash ----------

type pettyCashRepo struct{ s *gormStore }

func (r pettyCashRepo) Create(ctx context.Context, a *models.PettyCashAccount) error {
	if err := r.s.write(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create petty cash account: %w", err)
	}
	return nil
}

func (r pettyCashRepo) Get(ctx context.Context, period string) (*models.PettyCashAccount, error) {
	var a models.PettyCashAccount
	if err := r.s.forUpdate(ctx).Where("period = ?", period).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r pettyCashRepo) Save(ctx context.Context, a *models.PettyCashAccount) error {
	if err := r.s.write(ctx).Save(a).Error; err != nil {
		return fmt.Errorf("save petty cash account: %w", err)
	}
	return nil
}

// ---------- escalations ----------

type escalationRepo struct{ s *gormStore }

func (r escalationRepo) Create(ctx context.Context, e *models.EscalationRequest) error {
	if err := r.s.write(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create escalation request: %w", err)
	}
	return nil
}

func (r escalationRepo) Get(ctx context.Context, id string) (*models.EscalationRequest, error) {
	var e models.EscalationRequest
	if err := r.s.forUpdate(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r escalationRepo) Save(ctx context.Context, e *models.EscalationRequest) error {
	if err := r.s.write(ctx).Save(e).Error; err != nil {
		return fmt.Errorf("save escalation request: %w", err)
	}
	return nil
}

func (r escalationRepo) FindOpenAutomatic(ctx context.Context, period string) (*models.EscalationRequest, error) {
	var e models.EscalationRequest
	err := r.s.q(ctx).
		Where("period = ? AND status = ? AND origin = ?", period, models.EscalationPending, models.OriginAutomatic).
		First(&e).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r escalationRepo) List(ctx context.Context, f EscalationFilter) ([]models.EscalationRequest, error) {
	q := r.s.q(ctx).Model(&models.EscalationRequest{})
	if f.Period != "" {
		q = q.Where("period = ?", f.Period)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.EscalationRequest
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list escalation requests: %w", err)
	}
	return out, nil
}

// ---------- requisitions ----------

type requisitionRepo struct{ s *gormStore }

func (r requisitionRepo) Create(ctx context.Context, req *models.Requisition) error {
	if err := r.s.write(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create requisition: %w", err)
	}
	return nil
}

func (r requisitionRepo) Get(ctx context.Context, id string) (*models.Requisition, error) {
	var req models.Requisition
	if err := r.s.forUpdate(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r requisitionRepo) Save(ctx context.Context, req *models.Requisition) error {
	if err := r.s.write(ctx).Save(req).Error; err != nil {
		return fmt.Errorf("save requisition: %w", err)
	}
	return nil
}

func (r requisitionRepo) List(ctx context.Context, f RequisitionFilter) ([]models.Requisition, int64, error) {
	page, size := normalizePage(f.Page, f.Size, 20)

	base := r.s.q(ctx).Model(&models.Requisition{})
	if f.Period != "" {
		base = base.Where("period = ?", f.Period)
	}
	if f.AreaID != "" {
		base = base.Where("area_id = ?", f.AreaID)
	}
	if f.State != "" {
		base = base.Where("state = ?", f.State)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count requisitions: %w", err)
	}

	var out []models.Requisition
	if err := base.Session(&gorm.Session{}).
		Order("submitted_at DESC, number DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list requisitions: %w", err)
	}
	return out, total, nil
}

// ---------- audit ----------

type auditRepo struct{ s *gormStore }

func (r auditRepo) Append(ctx context.Context, e *models.AuditEntry) error {
	if err := r.s.write(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r auditRepo) List(ctx context.Context, f AuditFilter) ([]models.AuditEntry, int64, error) {
	page, size := normalizePage(f.Page, f.Size, 50)

	base := r.s.q(ctx).Model(&models.AuditEntry{})
	if f.EntityType != "" {
		base = base.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		base = base.Where("entity_id = ?", f.EntityID)
	}
	if f.Actor != "" {
		base = base.Where("actor = ?", f.Actor)
	}
	if !f.From.IsZero() {
		base = base.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		base = base.Where("created_at < ?", f.To)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	var out []models.AuditEntry
	if err := base.Session(&gorm.Session{}).
		Order("created_at ASC, id ASC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	return out, total, nil
}

// ---------- sequences ----------

type sequenceRepo struct{ s *gormStore }

func (r sequenceRepo) Next(ctx context.Context, name, period string) (int64, error) {
	seq := models.Sequence{Name: name, Period: period, Value: 1}
	err := r.s.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("sequences.value + 1")}),
	}).Create(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("bump sequence %s/%s: %w", name, period, err)
	}

	var cur models.Sequence
	if err := r.s.q(ctx).Where("name = ? AND period = ?", name, period).First(&cur).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s/%s: %w", name, period, err)
	}
	return cur.Value, nil
}
