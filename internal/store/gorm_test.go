package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/config"
	"github.com/CXmiloxx/secop-app-sub001/internal/database"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "store.db")})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return NewGorm(db)
}

func TestTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Areas().Create(ctx, &models.Area{ID: "math", Name: "Matemáticas"}))

	boom := errors.New("boom")
	err := s.Tx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Budgets().Create(ctx, &models.Budget{AreaID: "math", Period: "2025", Allocated: 100}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Budgets().Get(ctx, "math", "2025")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTx_Nested(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Areas().Create(ctx, &models.Area{ID: "art", Name: "Artes"}))

	err := s.Tx(ctx, func(ctx context.Context, tx Store) error {
		return tx.Tx(ctx, func(ctx context.Context, inner Store) error {
			return inner.Budgets().Create(ctx, &models.Budget{AreaID: "art", Period: "2025", Allocated: 500})
		})
	})
	require.NoError(t, err)

	b, err := s.Budgets().Get(ctx, "art", "2025")
	require.NoError(t, err)
	assert.Equal(t, int64(500), b.Allocated)
}

func TestBudgets_UniquePerAreaPeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Areas().Create(ctx, &models.Area{ID: "sci", Name: "Ciencias"}))

	require.NoError(t, s.Budgets().Create(ctx, &models.Budget{AreaID: "sci", Period: "2025", Allocated: 1}))
	assert.Error(t, s.Budgets().Create(ctx, &models.Budget{AreaID: "sci", Period: "2025", Allocated: 2}))
	require.NoError(t, s.Budgets().Create(ctx, &models.Budget{AreaID: "sci", Period: "2026", Allocated: 3}))

	list, err := s.Budgets().ListByPeriod(ctx, "2025")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Allocated)
}

func TestSequences_Next(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Sequences().Next(ctx, "requisition", "2025")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := s.Sequences().Next(ctx, "requisition", "2026")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = s.Sequences().Next(ctx, "committee", "2025")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestEscalations_OneOpenAutomaticPerPeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	guard := "2025"
	first := &models.EscalationRequest{ID: "a1", Period: "2025", RequestedAmount: 10,
		Status: models.EscalationPending, Origin: models.OriginAutomatic, OpenAutoGuard: &guard}
	require.NoError(t, s.Escalations().Create(ctx, first))

	guard2 := "2025"
	dup := &models.EscalationRequest{ID: "a2", Period: "2025", RequestedAmount: 10,
		Status: models.EscalationPending, Origin: models.OriginAutomatic, OpenAutoGuard: &guard2}
	assert.Error(t, s.Escalations().Create(ctx, dup))

	manual := &models.EscalationRequest{ID: "m1", Period: "2025", RequestedAmount: 5,
		Status: models.EscalationPending, Origin: models.OriginManual}
	require.NoError(t, s.Escalations().Create(ctx, manual))

	open, err := s.Escalations().FindOpenAutomatic(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, "a1", open.ID)

	require.NoError(t, first.Resolve(models.EscalationRejected, "rector", nil, "", time.Now()))
	require.NoError(t, s.Escalations().Save(ctx, first))

	_, err = s.Escalations().FindOpenAutomatic(ctx, "2025")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := s.Escalations().List(ctx, EscalationFilter{Period: "2025", Status: models.EscalationPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m1", pending[0].ID)
}

func TestRequisitions_ListPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []models.RequisitionState{models.StatePending, models.StateApproved, models.StatePending} {
		r := &models.Requisition{
			ID: string(rune('a' + i)), Number: "REQ-2025-00000" + string(rune('1'+i)),
			Period: "2025", AreaID: "math", Account: "5105", AmountBase: 10, AmountTotal: 10,
			State: st, RequestedBy: "u", SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.Requisitions().Create(ctx, r))
	}

	list, total, err := s.Requisitions().List(ctx, RequisitionFilter{Period: "2025", State: models.StatePending})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)

	list, total, err = s.Requisitions().List(ctx, RequisitionFilter{Period: "2025", Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	_, err = s.Requisitions().Get(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAudit_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []models.AuditEntry{
		{ID: "1", EntityType: "requisition", EntityID: "r1", Action: "submit", Actor: "ana", Outcome: models.OutcomeOK, CreatedAt: t0},
		{ID: "2", EntityType: "requisition", EntityID: "r1", Action: "approve", Actor: "rector", Outcome: models.OutcomeOK, CreatedAt: t0.Add(time.Hour)},
		{ID: "3", EntityType: "budget", EntityID: "math:2025", Action: "commit", Actor: "rector", Outcome: models.OutcomeOK, CreatedAt: t0.Add(2 * time.Hour)},
	}
	for i := range entries {
		require.NoError(t, s.Audit().Append(ctx, &entries[i]))
	}

	got, total, err := s.Audit().List(ctx, AuditFilter{EntityType: "requisition", EntityID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "submit", got[0].Action)
	assert.Equal(t, "approve", got[1].Action)

	got, _, err = s.Audit().List(ctx, AuditFilter{Actor: "rector", From: t0.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got, _, err = s.Audit().List(ctx, AuditFilter{To: t0.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}
