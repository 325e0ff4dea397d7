package models

import "time"

// Area is an organizational unit (department) that owns budgets.
// There is no update path: once a Budget references it, it never changes.
type Area struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
}
