package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-backend/logger"
	"storefront-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=storefront port=5432 sslmode=disable"

// Connect opens the relational database that holds device identities and
// admin accounts. driver is "postgres" (default) or "sqlite".
func Connect(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch driver {
	case "", "postgres":
		if dsn == "" {
			dsn = defaultDSN
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		if dsn == "" {
			dsn = "storefront.db"
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DeviceIdentity{},
		&models.AdminAccount{},
	)
}

// CreateDefaultAdmin makes sure the configured admin can sign in.
func CreateDefaultAdmin(ctx context.Context, db *gorm.DB, email, password string, log *logger.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "admin@storefront.local"
	}
	if password == "" {
		return errors.New("ADMIN_PASSWORD not set, skipping default admin")
	}

	var existing models.AdminAccount
	result := db.WithContext(ctx).Where("email = ?", email).First(&existing)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.AdminAccount{
		Email:    email,
		Password: string(hashedPassword),
		Name:     "Admin User",
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	log.Info(log.WithField(ctx, "email", email), "default admin created")
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
