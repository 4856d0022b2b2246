package uid

import "github.com/google/uuid"

// New returns a random (v4) UUID string. Listings, editor sessions, request
// ids and stored image keys all use it.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id parses as a UUID.
func IsValid(id string) bool {
	return uuid.Validate(id) == nil
}
