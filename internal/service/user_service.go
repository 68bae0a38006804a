package service

import (
	"errors"
	"time"

	"resort-booking-demo/backend/internal/models"
	apperrors "resort-booking-demo/backend/pkg/errors"

	"gorm.io/gorm"
)

// UserService handles guest account lookups for authentication. Account
// management itself lives outside this subsystem.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Authenticate verifies credentials and returns the user.
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid email or password")
	}
	if err != nil {
		return nil, apperrors.NewInternalServerError("USER_LOOKUP_FAILED", "failed to look up user")
	}

	if !models.CheckPasswordHash(password, user.Password) {
		return nil, apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	s.db.Model(&user).Update("last_login", time.Now())
	return &user, nil
}

// GetByID returns one user.
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("USER_NOT_FOUND", "user not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalServerError("USER_LOOKUP_FAILED", "failed to look up user")
	}
	return &user, nil
}
