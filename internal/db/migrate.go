package db

import (
	"fmt"

	"github.com/unidate/unidate-admin/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every collection table used by the admin backend.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	tables := []any{
		&models.Credential{},
		&models.AdminUser{},
		&models.AppUser{},
		&models.Post{},
		&models.Group{},
		&models.Report{},
		&models.Notification{},
		&models.FeatureFlag{},
		&models.Setting{},
	}
	for _, table := range tables {
		if errMigrate := conn.AutoMigrate(table); errMigrate != nil {
			return fmt.Errorf("db: migrate %T: %w", table, errMigrate)
		}
	}
	return nil
}
