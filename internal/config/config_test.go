package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  port: 9090
database:
  driver: sqlite
  path: data/test.db
jwt:
  secret: s3cret
ledger:
  current_period: "2025"
  escalation_threshold: "0.8"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRead(t *testing.T) {
	c, err := read(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "0.0.0.0", c.Server.Address)
	assert.Equal(t, "2025", c.Ledger.CurrentPeriod)
	assert.Equal(t, "COP", c.Ledger.Currency)
	assert.Equal(t, 10, c.Redis.LockTTLSeconds)

	th, err := c.Ledger.Threshold()
	require.NoError(t, err)
	assert.True(t, th.Equal(decimal.RequireFromString("0.8")))
}

func TestRead_EnvOverride(t *testing.T) {
	t.Setenv("PCL_LEDGER_CURRENT_PERIOD", "2026")

	c, err := read(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "2026", c.Ledger.CurrentPeriod)
}

func TestValidate(t *testing.T) {
	base := Config{
		Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
		JWT:      JWTConfig{Secret: "k"},
		Ledger:   LedgerConfig{CurrentPeriod: "2025", EscalationThreshold: "0.75"},
	}
	require.NoError(t, base.Validate())

	pg := base
	pg.Database = DatabaseConfig{Driver: "postgres"}
	assert.Error(t, pg.Validate())

	noSecret := base
	noSecret.JWT.Secret = ""
	assert.Error(t, noSecret.Validate())

	for _, th := range []string{"0", "1.5", "-0.2", "abc"} {
		bad := base
		bad.Ledger.EscalationThreshold = th
		assert.Error(t, bad.Validate(), th)
	}
}
