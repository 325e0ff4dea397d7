// Package audit keeps the append-only approval trail: one entry per transition or
// ledger mutation, successful or not.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entity types.
const (
	EntityRequisition = "requisition"
	EntityBudget      = "budget"
	EntityPettyCash   = "petty_cash"
	EntityEscalation  = "escalation"
)

// Entry is what callers hand to Record. Before and After are serialized into the
// snapshot; Err marks the entry as a failed attempt.
type Entry struct {
	EntityType string
	EntityID   string
	Action     string
	From       string
	To         string
	Actor      string
	Flagged    bool
	Before     any
	After      any
	Err        error
}

type Recorder struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(s store.Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: s, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Bind returns a Recorder writing through s, typically the transaction the audited
// mutation runs in.
func (r *Recorder) Bind(s store.Store) *Recorder {
	cp := *r
	cp.store = s
	return &cp
}

// Record appends one entry. It is the only write path of the trail.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	snap, err := json.Marshal(struct {
		Before any `json:"before"`
		After  any `json:"after"`
	}{e.Before, e.After})
	if err != nil {
		return fmt.Errorf("encode audit snapshot: %w", err)
	}

	row := &models.AuditEntry{
		ID:         uuid.NewString(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		FromState:  e.From,
		ToState:    e.To,
		Actor:      e.Actor,
		Outcome:    models.OutcomeOK,
		Flagged:    e.Flagged,
		Snapshot:   string(snap),
		CreatedAt:  r.now(),
	}
	if e.Err != nil {
		row.Outcome = models.OutcomeFailed
		row.Error = truncate(e.Err.Error(), 1024)
	}

	if err := r.store.Audit().Append(ctx, row); err != nil {
		r.logger.Error("audit append failed",
			zap.String("entity", e.EntityType), zap.String("id", e.EntityID),
			zap.String("action", e.Action), zap.Error(err))
		return err
	}
	return nil
}

// List is the read projection of the trail.
func (r *Recorder) List(ctx context.Context, f store.AuditFilter) ([]models.AuditEntry, int64, error) {
	return r.store.Audit().List(ctx, f)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
