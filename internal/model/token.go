package model

import "time"

// TokenData contains the data stored with an operator session token.
type TokenData struct {
	AdminID   int64     `json:"admin_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
