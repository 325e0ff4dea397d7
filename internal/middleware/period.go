package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	ctxPeriod    = "period"
	PeriodHeader = "X-Period"
)

var periodPattern = regexp.MustCompile(`^[0-9]{4}(-[0-9]{2})?$`)

// PeriodMiddleware resolves the fiscal period of the request from the X-Period
// header, falling back to the configured current period.
func PeriodMiddleware(current string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := strings.TrimSpace(c.GetHeader(PeriodHeader))
		if p == "" {
			p = current
		}
		if !periodPattern.MatchString(p) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid period "+p)
			c.Abort()
			return
		}
		c.Set(ctxPeriod, p)
		c.Next()
	}
}

func Period(c *gin.Context) string {
	return c.GetString(ctxPeriod)
}
