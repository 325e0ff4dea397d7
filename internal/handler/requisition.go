package handler

import (
	"net/http"

	"github.com/CXmiloxx/secop-app-sub001/internal/middleware"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/requisition"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RequisitionHandler struct {
	Machine *requisition.Machine
}

func NewRequisitionHandler(m *requisition.Machine) *RequisitionHandler {
	return &RequisitionHandler{Machine: m}
}

// ---------- requests ----------

type submitReq struct {
	AreaID     string           `json:"area_id" binding:"required"`
	Account    string           `json:"account" binding:"required,max=32"`
	Concept    string           `json:"concept" binding:"max=512"`
	Provider   string           `json:"provider" binding:"max=128"`
	AmountBase *decimal.Decimal `json:"amount_base"`
	AmountTax  *decimal.Decimal `json:"amount_tax"`
}

type approveReq struct {
	DefinedAmount    *decimal.Decimal `json:"defined_amount"`
	Provider         string           `json:"provider" binding:"max=128"`
	RequiresDelivery bool             `json:"requires_delivery"`
	BudgetOverride   bool             `json:"budget_override"`
	OverrideReason   string           `json:"override_reason" binding:"max=512"`
}

type rejectReq struct {
	Reason string `json:"reason" binding:"required,max=512"`
}

type routeReq struct {
	Route string `json:"route" binding:"required"`
}

type deliveryReq struct {
	Recipient string `json:"recipient"`
}

// ---------- handlers ----------

func (h *RequisitionHandler) Submit(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	base, err := amountOf(req.AmountBase, "amount_base")
	if err != nil {
		util.Fail(c, err)
		return
	}
	var tax int64
	if req.AmountTax != nil {
		if tax, err = util.ToAmount(*req.AmountTax); err != nil {
			util.Fail(c, err)
			return
		}
	}

	r, err := h.Machine.Submit(c.Request.Context(), requisition.SubmitInput{
		Period:      middleware.Period(c),
		AreaID:      req.AreaID,
		Account:     req.Account,
		Concept:     req.Concept,
		Provider:    req.Provider,
		AmountBase:  base,
		AmountTax:   tax,
		RequestedBy: middleware.Actor(c),
	})
	h.reply(c, r, err)
}

func (h *RequisitionHandler) Approve(c *gin.Context) {
	var req approveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	amount, err := amountOf(req.DefinedAmount, "defined_amount")
	if err != nil {
		util.Fail(c, err)
		return
	}

	r, err := h.Machine.Approve(c.Request.Context(), c.Param("id"), requisition.ApproveInput{
		Approver:      middleware.Actor(c),
		DefinedAmount: amount,
		Provider:      req.Provider,
		Flags: requisition.CommitteeFlags{
			RequiresDelivery: req.RequiresDelivery,
			BudgetOverride:   req.BudgetOverride,
			OverrideReason:   req.OverrideReason,
		},
	})
	h.reply(c, r, err)
}

func (h *RequisitionHandler) Reject(c *gin.Context) {
	var req rejectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "a rejection reason is required")
		return
	}
	r, err := h.Machine.Reject(c.Request.Context(), c.Param("id"), middleware.Actor(c), req.Reason)
	h.reply(c, r, err)
}

func (h *RequisitionHandler) Route(c *gin.Context) {
	var req routeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "route is required")
		return
	}
	r, err := h.Machine.RouteToPayment(c.Request.Context(), c.Param("id"), models.PaymentRoute(req.Route), middleware.Actor(c))
	h.reply(c, r, err)
}

func (h *RequisitionHandler) RegisterPayment(c *gin.Context) {
	r, err := h.Machine.RegisterPayment(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	h.reply(c, r, err)
}

// ConfirmDelivery defaults the recipient to the caller.
func (h *RequisitionHandler) ConfirmDelivery(c *gin.Context) {
	var req deliveryReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
			return
		}
	}
	if req.Recipient == "" {
		req.Recipient = middleware.Actor(c)
	}
	r, err := h.Machine.ConfirmDelivery(c.Request.Context(), c.Param("id"), req.Recipient)
	h.reply(c, r, err)
}

func (h *RequisitionHandler) Get(c *gin.Context) {
	r, err := h.Machine.Get(c.Request.Context(), c.Param("id"))
	h.reply(c, r, err)
}

// List filters by the request period plus optional area and state.
func (h *RequisitionHandler) List(c *gin.Context) {
	page, size := pageParams(c, 20)
	list, total, err := h.Machine.List(c.Request.Context(), store.RequisitionFilter{
		Period: middleware.Period(c),
		AreaID: c.Query("area_id"),
		State:  models.RequisitionState(c.Query("state")),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]requisitionResp, 0, len(list))
	for i := range list {
		items = append(items, toRequisitionResp(&list[i]))
	}
	util.Success(c, util.Response{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

func (h *RequisitionHandler) reply(c *gin.Context, r *models.Requisition, err error) {
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"requisition": toRequisitionResp(r)})
}
