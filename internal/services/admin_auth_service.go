package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/luxeride/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore is the persistence contract for admin accounts
type AdminStore interface {
	GetByEmail(email string) (*models.AdminUser, error)
	UpdateLastLogin(adminID uuid.UUID) error
}

// ErrInvalidCredentials is returned for any login failure. Callers get
// the same error whether the account is missing, inactive or the
// password is wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AdminAuthService authenticates dashboard operators and issues access tokens
type AdminAuthService struct {
	admins AdminStore
	tokens *jwt.Service
	logger *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(admins AdminStore, tokens *jwt.Service, logger *logrus.Logger) *AdminAuthService {
	return &AdminAuthService{
		admins: admins,
		tokens: tokens,
		logger: logger,
	}
}

// Login verifies credentials and returns an access token
func (s *AdminAuthService) Login(req *models.AdminLoginRequest) (*models.AdminLoginResponse, error) {
	admin, err := s.admins.GetByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin user: %w", err)
	}
	if admin == nil || !admin.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.admins.UpdateLastLogin(admin.ID); err != nil {
		s.logger.WithError(err).WithField("admin_id", admin.ID).
			Warn("Failed to record last login")
	}

	s.logger.WithField("admin_id", admin.ID).Info("Admin logged in")

	return &models.AdminLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.tokens.AccessTokenExpiry().Seconds()),
		AdminUser:   admin,
	}, nil
}
