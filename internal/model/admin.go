package model

// AdminAccount is a dashboard operator.
type AdminAccount struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
}
