package handler

import (
	"net/http"

	"github.com/CXmiloxx/secop-app-sub001/internal/budget"
	"github.com/CXmiloxx/secop-app-sub001/internal/middleware"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BudgetHandler struct {
	Ledger *budget.Ledger
}

func NewBudgetHandler(ledger *budget.Ledger) *BudgetHandler {
	return &BudgetHandler{Ledger: ledger}
}

type openBudgetReq struct {
	AreaID    string           `json:"area_id" binding:"required"`
	Allocated *decimal.Decimal `json:"allocated"`
}

// OpenBudget creates the budget of an area for the request period.
func (h *BudgetHandler) OpenBudget(c *gin.Context) {
	var req openBudgetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	allocated, err := amountOf(req.Allocated, "allocated")
	if err != nil {
		util.Fail(c, err)
		return
	}

	key := budget.Key{AreaID: req.AreaID, Period: middleware.Period(c)}
	b, err := h.Ledger.Open(c.Request.Context(), key, allocated, middleware.Actor(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"budget": toBudgetResp(b)})
}

func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	list, err := h.Ledger.ListByPeriod(c.Request.Context(), middleware.Period(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]budgetResp, 0, len(list))
	for i := range list {
		items = append(items, toBudgetResp(&list[i]))
	}
	util.Success(c, util.Response{"items": items, "period": middleware.Period(c)})
}

func (h *BudgetHandler) GetBudget(c *gin.Context) {
	key := budget.Key{AreaID: c.Param("area"), Period: middleware.Period(c)}
	b, err := h.Ledger.Get(c.Request.Context(), key)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"budget": toBudgetResp(b)})
}
