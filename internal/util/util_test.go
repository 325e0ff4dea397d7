package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAmount(t *testing.T) {
	v, err := ToAmount(decimal.RequireFromString("1000000"))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), v)

	v, err = ToAmount(decimal.RequireFromString("250.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(250), v)

	v, err = ToAmount(decimal.NewFromInt(models.MaxAmount))
	require.NoError(t, err)
	assert.Equal(t, models.MaxAmount, v)

	for _, bad := range []string{"12.5", "-1", "1000000000000001", "9223372036854775807", "99999999999999999999"} {
		_, err := ToAmount(decimal.RequireFromString(bad))
		assert.ErrorIs(t, err, apperr.ErrInvalidAmount, bad)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.000.000", FormatAmount(1_000_000))
	assert.Equal(t, "500", FormatAmount(500))
}

func TestToken_RoundTrip(t *testing.T) {
	tok, err := GenerateToken("k", "secop", "u-42", RoleApprover, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken("k", "secop", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.Subject)
	assert.Equal(t, RoleApprover, claims.Role)

	_, err = ParseToken("other", "secop", tok)
	assert.Error(t, err)
	_, err = ParseToken("k", "someone-else", tok)
	assert.Error(t, err)
}

func TestToken_Expired(t *testing.T) {
	tok, err := GenerateToken("k", "", "u", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	// a non-positive ttl falls back to a day
	_, err = ParseToken("k", "", tok)
	require.NoError(t, err)
}

func TestFail_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{apperr.BudgetExceeded(10, 5), http.StatusUnprocessableEntity, CodeRuleViolated},
		{apperr.InvalidTransition("requisition", "PENDING", "pay"), http.StatusConflict, CodeConflict},
		{apperr.AlreadyResolved("x", "APPROVED"), http.StatusConflict, CodeConflict},
		{apperr.NotFound("requisition", "x"), http.StatusNotFound, CodeNotFound},
		{apperr.InvalidAmount(-1), http.StatusBadRequest, CodeInvalidAmt},
		{errors.Join(apperr.CapExceeded(3, 2), errors.New("audit down")), http.StatusUnprocessableEntity, CodeRuleViolated},
		{errors.New("disk full"), http.StatusInternalServerError, CodeServerErr},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
		if tc.status == http.StatusInternalServerError {
			assert.NotContains(t, body.Message, "disk")
		}
	}
}
