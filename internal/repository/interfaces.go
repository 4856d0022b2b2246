package repository

import (
	"context"
	"errors"

	"listing-admin-api/internal/model"
)

// ErrInvalidCredentials is returned when an operator login fails.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ListingRepository defines listing catalog data access methods.
type ListingRepository interface {
	// Create inserts a new listing. ID, CreatedAt and UpdatedAt must be set.
	Create(ctx context.Context, l *model.Listing) error

	// Get retrieves a listing by ID. It returns nil, nil when not found.
	Get(ctx context.Context, id string) (*model.Listing, error)

	// Update replaces a stored listing. It returns false when the ID is unknown.
	Update(ctx context.Context, l *model.Listing) (bool, error)

	// Delete removes the listings with the given IDs and returns how many existed.
	Delete(ctx context.Context, ids []string) (int64, error)

	// List returns one page of listings, newest first, and the total match count.
	List(ctx context.Context, filter model.ListingFilter) ([]model.Listing, int64, error)

	// GetStats returns statistics about the catalog database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// AdminRepository defines operator account data access methods.
type AdminRepository interface {
	// GetAdminByEmail finds an active account. It returns nil, nil when not found.
	GetAdminByEmail(ctx context.Context, email string) (*model.AdminAccount, error)

	// Authenticate checks a password against the stored hash.
	Authenticate(ctx context.Context, email, password string) (*model.AdminAccount, error)
}
