package repo

import (
	"gorm.io/gorm"

	"sum-admin/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Role{},
		&domain.UserRole{},
		&domain.AuditLogEntry{},
	)
}
