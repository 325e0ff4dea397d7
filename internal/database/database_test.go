package database

import (
	"path/filepath"
	"testing"

	"github.com/CXmiloxx/secop-app-sub001/internal/config"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAndMigrate(t *testing.T) {
	db, err := Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nested", "ledger.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	require.NoError(t, AutoMigrate(db))

	for _, m := range []any{&models.Budget{}, &models.Requisition{}, &models.AuditEntry{}, &models.Sequence{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.EscalationRequest{}, "OpenAutoGuard"))
}

func TestInit_UnknownDriver(t *testing.T) {
	_, err := Init(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
