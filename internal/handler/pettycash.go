package handler

import (
	"net/http"
	"strings"

	"github.com/CXmiloxx/secop-app-sub001/internal/middleware"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/pettycash"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PettyCashHandler struct {
	Service *pettycash.Service
}

func NewPettyCashHandler(s *pettycash.Service) *PettyCashHandler {
	return &PettyCashHandler{Service: s}
}

type assignReq struct {
	Amount *decimal.Decimal `json:"amount"`
	Cap    *decimal.Decimal `json:"cap"`
}

type topUpReq struct {
	Amount        *decimal.Decimal `json:"amount"`
	Justification string           `json:"justification" binding:"required,max=1024"`
}

type resolveReq struct {
	Decision       string           `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount"`
	Note           string           `json:"note" binding:"max=512"`
}

// Assign opens or tops up the period's account. cap is only read when the account
// does not exist yet.
func (h *PettyCashHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	amount, err := amountOf(req.Amount, "amount")
	if err != nil {
		util.Fail(c, err)
		return
	}
	var limit int64
	if req.Cap != nil {
		if limit, err = util.ToAmount(*req.Cap); err != nil {
			util.Fail(c, err)
			return
		}
	}

	acct, err := h.Service.Assign(c.Request.Context(), middleware.Period(c), amount, limit, middleware.Actor(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"account": toPettyCashResp(acct)})
}

func (h *PettyCashHandler) GetAccount(c *gin.Context) {
	acct, err := h.Service.Get(c.Request.Context(), middleware.Period(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"account":   toPettyCashResp(acct),
		"threshold": h.Service.Threshold().String(),
	})
}

func (h *PettyCashHandler) RequestTopUp(c *gin.Context) {
	var req topUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "a justification is required")
		return
	}
	amount, err := amountOf(req.Amount, "amount")
	if err != nil {
		util.Fail(c, err)
		return
	}
	r, err := h.Service.RequestTopUp(c.Request.Context(), middleware.Period(c), amount, req.Justification, middleware.Actor(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"escalation": toEscalationResp(r)})
}

func (h *PettyCashHandler) ListEscalations(c *gin.Context) {
	list, err := h.Service.ListEscalations(c.Request.Context(), store.EscalationFilter{
		Period: middleware.Period(c),
		Status: models.EscalationStatus(strings.ToUpper(c.Query("status"))),
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]escalationResp, 0, len(list))
	for i := range list {
		items = append(items, toEscalationResp(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *PettyCashHandler) Resolve(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "decision must be APPROVED or REJECTED")
		return
	}
	var approved int64
	if req.ApprovedAmount != nil {
		var err error
		if approved, err = util.ToAmount(*req.ApprovedAmount); err != nil {
			util.Fail(c, err)
			return
		}
	}

	r, err := h.Service.ResolveEscalation(c.Request.Context(), c.Param("id"), middleware.Actor(c),
		approved, models.EscalationStatus(req.Decision), req.Note)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"escalation": toEscalationResp(r)})
}
