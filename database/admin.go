package database

import (
	"context"
	"errors"
	"strings"

	"storefront-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AdminAccounts struct {
	DB *gorm.DB
}

// Authenticate checks an admin's email and password.
func (a *AdminAccounts) Authenticate(ctx context.Context, email, password string) (models.AdminAccount, error) {
	var admin models.AdminAccount
	err := a.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AdminAccount{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.AdminAccount{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return models.AdminAccount{}, ErrInvalidCredentials
	}
	return admin, nil
}
