package handler

import (
	"net/http"

	"github.com/CXmiloxx/secop-app-sub001/internal/audit"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the approval trail. It is read-only.
type AuditHandler struct {
	Recorder *audit.Recorder
}

func NewAuditHandler(rec *audit.Recorder) *AuditHandler {
	return &AuditHandler{Recorder: rec}
}

// ListAudit filters by entity_type, entity_id, actor and a [from, to) range.
func (h *AuditHandler) ListAudit(c *gin.Context) {
	page, size := pageParams(c, 50)
	f := store.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Actor:      c.Query("actor"),
		Page:       page,
		Size:       size,
	}
	if s := c.Query("from"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid from date")
			return
		}
		f.From = t
	}
	if s := c.Query("to"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid to date")
			return
		}
		f.To = t
	}

	list, total, err := h.Recorder.List(c.Request.Context(), f)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]auditResp, 0, len(list))
	for i := range list {
		items = append(items, toAuditResp(&list[i]))
	}
	util.Success(c, util.Response{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}
