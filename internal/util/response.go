package util

import (
	"net/http"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Response is the data payload of a successful reply.
type Response map[string]interface{}

// Business codes.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeInvalidAmt   = 40002
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeRuleViolated = 42201
	CodeServerErr    = 50001
)

func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// Fail writes err using the domain error taxonomy. Anything that is not an
// *apperr.Error is a server fault and its details stay in the logs.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := apperr.KindOf(err)
	if kind == "" {
		Error(c, http.StatusInternalServerError, CodeServerErr, "internal error")
		return
	}
	status, code := StatusOf(kind)
	c.JSON(status, gin.H{
		"code":    code,
		"kind":    kind,
		"message": err.Error(),
	})
}

// StatusOf maps an error kind to its HTTP status and business code.
func StatusOf(kind apperr.Kind) (int, int) {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest, CodeInvalidParam
	case apperr.KindInvalidAmount:
		return http.StatusBadRequest, CodeInvalidAmt
	case apperr.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case apperr.KindInvalidTransition, apperr.KindAlreadyResolved:
		return http.StatusConflict, CodeConflict
	case apperr.KindBudgetExceeded, apperr.KindInsufficientPettyCash, apperr.KindCapExceeded:
		return http.StatusUnprocessableEntity, CodeRuleViolated
	}
	return http.StatusInternalServerError, CodeServerErr
}
