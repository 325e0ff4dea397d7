package database

import (
	"fmt"

	"github.com/CXmiloxx/secop-app-sub001/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Area{},
		&models.Budget{},
		&models.PettyCashAccount{},
		&models.EscalationRequest{},
		&models.Requisition{},
		&models.AuditEntry{},
		&models.Sequence{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
