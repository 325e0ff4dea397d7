package handler

import (
	"net/http"
	"strings"

	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

// AreaHandler registers the departments budgets are opened for. Areas are never
// updated once created.
type AreaHandler struct {
	Areas store.AreaRepository
}

func NewAreaHandler(areas store.AreaRepository) *AreaHandler {
	return &AreaHandler{Areas: areas}
}

type createAreaReq struct {
	ID   string `json:"id" binding:"required,max=64"`
	Name string `json:"name" binding:"required,max=128"`
}

func (h *AreaHandler) CreateArea(c *gin.Context) {
	var req createAreaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "area id is required")
		return
	}

	if _, err := h.Areas.Get(c.Request.Context(), id); err == nil {
		util.Error(c, http.StatusConflict, util.CodeConflict, "area "+id+" already exists")
		return
	}

	area := models.Area{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := h.Areas.Create(c.Request.Context(), &area); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"area": toAreaResp(&area)})
}

func (h *AreaHandler) ListAreas(c *gin.Context) {
	areas, err := h.Areas.List(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]areaResp, 0, len(areas))
	for i := range areas {
		items = append(items, toAreaResp(&areas[i]))
	}
	util.Success(c, util.Response{"items": items})
}
