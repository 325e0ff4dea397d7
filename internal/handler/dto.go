package handler

import (
	"strconv"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ---------- helpers ----------

// amountOf converts a required JSON amount.
func amountOf(d *decimal.Decimal, field string) (int64, error) {
	if d == nil {
		return 0, apperr.InvalidInput("%s is required", field)
	}
	return util.ToAmount(*d)
}

func pageParams(c *gin.Context, def int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(def)))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = def
	}
	return page, size
}

// parseTime accepts RFC3339 or a plain date.
func parseTime(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// ---------- responses ----------

type areaResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toAreaResp(a *models.Area) areaResp {
	return areaResp{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt}
}

type budgetResp struct {
	AreaID    string    `json:"area_id"`
	Period    string    `json:"period"`
	Allocated int64     `json:"allocated"`
	Spent     int64     `json:"spent"`
	Committed int64     `json:"committed"`
	Available int64     `json:"available"`
	Display   string    `json:"available_display"`
	Overdrawn bool      `json:"overdrawn"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toBudgetResp(b *models.Budget) budgetResp {
	return budgetResp{
		AreaID:    b.AreaID,
		Period:    b.Period,
		Allocated: b.Allocated,
		Spent:     b.Spent,
		Committed: b.Committed,
		Available: b.Available(),
		Display:   util.FormatAmount(b.Available()),
		Overdrawn: b.Overdrawn,
		UpdatedAt: b.UpdatedAt,
	}
}

type pettyCashResp struct {
	Period    string `json:"period"`
	Assigned  int64  `json:"assigned"`
	Spent     int64  `json:"spent"`
	Available int64  `json:"available"`
	Cap       int64  `json:"cap"`
	Ratio     string `json:"spent_ratio"`
}

func toPettyCashResp(a *models.PettyCashAccount) pettyCashResp {
	return pettyCashResp{
		Period:    a.Period,
		Assigned:  a.Assigned,
		Spent:     a.Spent,
		Available: a.Available(),
		Cap:       a.Cap,
		Ratio:     a.SpentRatio().StringFixed(4),
	}
}

type escalationResp struct {
	ID              string     `json:"id"`
	Period          string     `json:"period"`
	RequestedAmount int64      `json:"requested_amount"`
	ApprovedAmount  *int64     `json:"approved_amount,omitempty"`
	Justification   string     `json:"justification"`
	Status          string     `json:"status"`
	Origin          string     `json:"origin"`
	RequestedBy     string     `json:"requested_by"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolutionNote  string     `json:"resolution_note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func toEscalationResp(r *models.EscalationRequest) escalationResp {
	return escalationResp{
		ID:              r.ID,
		Period:          r.Period,
		RequestedAmount: r.RequestedAmount,
		ApprovedAmount:  r.ApprovedAmount,
		Justification:   r.Justification,
		Status:          string(r.Status),
		Origin:          string(r.Origin),
		RequestedBy:     r.RequestedBy,
		ResolvedBy:      r.ResolvedBy,
		ResolutionNote:  r.ResolutionNote,
		CreatedAt:       r.CreatedAt,
		ResolvedAt:      r.ResolvedAt,
	}
}

type requisitionResp struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	Period           string     `json:"period"`
	AreaID           string     `json:"area_id"`
	Account          string     `json:"account"`
	Concept          string     `json:"concept"`
	Provider         string     `json:"provider,omitempty"`
	AmountBase       int64      `json:"amount_base"`
	AmountTax        int64      `json:"amount_tax"`
	AmountTotal      int64      `json:"amount_total"`
	State            string     `json:"state"`
	PaymentRoute     string     `json:"payment_route,omitempty"`
	RequiresDelivery bool       `json:"requires_delivery"`
	BudgetOverride   bool       `json:"budget_override"`
	CommitteeNumber  string     `json:"committee_number,omitempty"`
	RequestedBy      string     `json:"requested_by"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	RejectedBy       string     `json:"rejected_by,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	PaidBy           string     `json:"paid_by,omitempty"`
	DeliveredTo      string     `json:"delivered_to,omitempty"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty"`
	RoutedAt         *time.Time `json:"routed_at,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
}

func toRequisitionResp(r *models.Requisition) requisitionResp {
	return requisitionResp{
		ID:               r.ID,
		Number:           r.Number,
		Period:           r.Period,
		AreaID:           r.AreaID,
		Account:          r.Account,
		Concept:          r.Concept,
		Provider:         r.Provider,
		AmountBase:       r.AmountBase,
		AmountTax:        r.AmountTax,
		AmountTotal:      r.AmountTotal,
		State:            string(r.State),
		PaymentRoute:     string(r.PaymentRoute),
		RequiresDelivery: r.RequiresDelivery,
		BudgetOverride:   r.BudgetOverride,
		CommitteeNumber:  r.CommitteeNumber,
		RequestedBy:      r.RequestedBy,
		ApprovedBy:       r.ApprovedBy,
		RejectedBy:       r.RejectedBy,
		RejectionReason:  r.RejectionReason,
		PaidBy:           r.PaidBy,
		DeliveredTo:      r.DeliveredTo,
		SubmittedAt:      r.SubmittedAt,
		ApprovedAt:       r.ApprovedAt,
		RejectedAt:       r.RejectedAt,
		RoutedAt:         r.RoutedAt,
		PaidAt:           r.PaidAt,
		DeliveredAt:      r.DeliveredAt,
	}
}

type auditResp struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	FromState  string    `json:"from_state,omitempty"`
	ToState    string    `json:"to_state,omitempty"`
	Actor      string    `json:"actor"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Flagged    bool      `json:"flagged"`
	Snapshot   string    `json:"snapshot"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAuditResp(e *models.AuditEntry) auditResp {
	return auditResp{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		FromState:  e.FromState,
		ToState:    e.ToState,
		Actor:      e.Actor,
		Outcome:    e.Outcome,
		Error:      e.Error,
		Flagged:    e.Flagged,
		Snapshot:   e.Snapshot,
		CreatedAt:  e.CreatedAt,
	}
}
