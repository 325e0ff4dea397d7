package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := BudgetExceeded(400000, 300000)

	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.False(t, errors.Is(err, ErrCapExceeded))
	assert.Equal(t, "requested amount 400000 exceeds available budget of 300000", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("approve: %w", NotFound("requisition", "42"))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, Kind(""), KindOf(errors.New("disk full")))
}
