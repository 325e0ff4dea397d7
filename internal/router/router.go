package router

import (
	"context"
	"net/http"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/audit"
	"github.com/CXmiloxx/secop-app-sub001/internal/budget"
	"github.com/CXmiloxx/secop-app-sub001/internal/config"
	"github.com/CXmiloxx/secop-app-sub001/internal/handler"
	"github.com/CXmiloxx/secop-app-sub001/internal/middleware"
	"github.com/CXmiloxx/secop-app-sub001/internal/pettycash"
	"github.com/CXmiloxx/secop-app-sub001/internal/requisition"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the services the HTTP layer maps onto.
type Deps struct {
	Logger    *zap.Logger
	Store     store.Store
	Ledger    *budget.Ledger
	PettyCash *pettycash.Service
	Machine   *requisition.Machine
	Recorder  *audit.Recorder
	// Ping reports database health; nil skips the check.
	Ping func(ctx context.Context) error
}

// SetupRouter configures the gin engine and the /api routes.
func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders("Authorization", middleware.PeriodHeader)
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(c.Request.Context()); err != nil {
				util.Error(c, http.StatusServiceUnavailable, util.CodeServerErr, "database unavailable")
				return
			}
		}
		util.Success(c, util.Response{"status": "ok", "period": cfg.Ledger.CurrentPeriod})
	})

	// ====== API ======
	api := r.Group("/api")
	api.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer),
		middleware.PeriodMiddleware(cfg.Ledger.CurrentPeriod),
	)

	admin := middleware.RequireRole()
	approver := middleware.RequireRole(util.RoleApprover)
	treasurer := middleware.RequireRole(util.RoleTreasurer)

	areaHandler := handler.NewAreaHandler(d.Store.Areas())
	api.POST("/areas", admin, areaHandler.CreateArea)
	api.GET("/areas", areaHandler.ListAreas)

	budgetHandler := handler.NewBudgetHandler(d.Ledger)
	api.POST("/budgets", admin, budgetHandler.OpenBudget)
	api.GET("/budgets", budgetHandler.ListBudgets)
	api.GET("/budgets/:area", budgetHandler.GetBudget)

	reqHandler := handler.NewRequisitionHandler(d.Machine)
	api.POST("/requisitions", reqHandler.Submit)
	api.GET("/requisitions", reqHandler.List)
	api.GET("/requisitions/:id", reqHandler.Get)
	api.POST("/requisitions/:id/approve", approver, reqHandler.Approve)
	api.POST("/requisitions/:id/reject", approver, reqHandler.Reject)
	api.POST("/requisitions/:id/route", treasurer, reqHandler.Route)
	api.POST("/requisitions/:id/payment", treasurer, reqHandler.RegisterPayment)
	api.POST("/requisitions/:id/delivery", reqHandler.ConfirmDelivery)

	pettyHandler := handler.NewPettyCashHandler(d.PettyCash)
	api.POST("/petty-cash/assign", admin, pettyHandler.Assign)
	api.GET("/petty-cash", pettyHandler.GetAccount)
	api.POST("/petty-cash/escalations", pettyHandler.RequestTopUp)
	api.GET("/petty-cash/escalations", pettyHandler.ListEscalations)
	api.POST("/petty-cash/escalations/:id/resolve", admin, pettyHandler.Resolve)

	auditHandler := handler.NewAuditHandler(d.Recorder)
	api.GET("/audit", auditHandler.ListAudit)

	return r
}
