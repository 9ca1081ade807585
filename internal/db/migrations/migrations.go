package migrations

import (
	"fmt"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migrate runs the initial database migrations
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(&models.User{})
	if err != nil {
		return fmt.Errorf("failed to migrate user model: %v", err)
	}

	err = db.AutoMigrate(&models.MetricSample{})
	if err != nil {
		return fmt.Errorf("failed to migrate metric sample model: %v", err)
	}

	err = db.AutoMigrate(&models.Finding{})
	if err != nil {
		return fmt.Errorf("failed to migrate finding model: %v", err)
	}

	err = db.AutoMigrate(&models.RollupRecord{})
	if err != nil {
		return fmt.Errorf("failed to migrate rollup record model: %v", err)
	}

	// Create default admin user if not exists
	var userCount int64
	err = db.Model(&models.User{}).Count(&userCount).Error
	if err != nil {
		return err
	}

	if userCount == 0 {
		// Hash the default admin password
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		adminUser := models.User{
			Username: "admin",
			Email:    "admin@fnos-overseer.local",
			Password: string(hashedPassword),
			Role:     "admin",
			IsActive: true,
		}
		err = db.Create(&adminUser).Error
		if err != nil {
			return err
		}
	}

	return nil
}
