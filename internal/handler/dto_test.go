package handler

import (
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

func TestAmountOf(t *testing.T) {
	_, err := amountOf(nil, "amount")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	d := decimal.NewFromInt(1500)
	v, err := amountOf(&d, "amount")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), v)
}

func TestPageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-3&page_size=1000", nil)

	page, size := pageParams(c, 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseTime("2025-03-01T10:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, 15, got.Hour())

	_, err = parseTime("01/03/2025")
	assert.Error(t, err)
}

func TestToBudgetResp(t *testing.T) {
	r := toBudgetResp(&models.Budget{AreaID: "math", Period: "2025", Allocated: 1_000_000, Committed: 250_000})
	assert.Equal(t, int64(750_000), r.Available)
	assert.Equal(t, "750.000", r.Display)
}
