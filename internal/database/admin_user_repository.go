package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
)

// AdminUserRepository handles dashboard operator accounts
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new AdminUserRepository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail retrieves an admin user by email. Returns nil, nil when not found.
func (r *AdminUserRepository) GetByEmail(email string) (*models.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, full_name, is_active, last_login_at, created_at, updated_at
		FROM admin_users
		WHERE email = $1`

	var admin models.AdminUser
	err := r.db.QueryRow(query, email).Scan(
		&admin.ID, &admin.Email, &admin.PasswordHash, &admin.FullName,
		&admin.IsActive, &admin.LastLoginAt, &admin.CreatedAt, &admin.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

// UpdateLastLogin stamps the most recent successful login
func (r *AdminUserRepository) UpdateLastLogin(adminID uuid.UUID) error {
	query := `UPDATE admin_users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, adminID); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
