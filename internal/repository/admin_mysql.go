package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"listing-admin-api/internal/model"

	"golang.org/x/crypto/bcrypt"
)

// MySQLAdminRepository implements AdminRepository using MySQL.
type MySQLAdminRepository struct {
	db *sql.DB
}

// NewMySQLAdminRepository creates a new MySQL admin account repository.
func NewMySQLAdminRepository(db *sql.DB) *MySQLAdminRepository {
	return &MySQLAdminRepository{db: db}
}

// GetAdminByEmail finds an active admin account by email.
func (r *MySQLAdminRepository) GetAdminByEmail(ctx context.Context, email string) (*model.AdminAccount, error) {
	query := `
		SELECT id, email, name, password_hash, is_active
		FROM admin_accounts
		WHERE email = ? AND is_active = 1
		LIMIT 1`

	var a model.AdminAccount
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin account: %w", err)
	}
	return &a, nil
}

// Authenticate validates an email and password combination.
func (r *MySQLAdminRepository) Authenticate(ctx context.Context, email, password string) (*model.AdminAccount, error) {
	a, err := r.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// Ensure MySQLAdminRepository implements AdminRepository
var _ AdminRepository = (*MySQLAdminRepository)(nil)
