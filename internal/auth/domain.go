package auth

import "time"

// User represents a registered account. PasswordHash is the stored bcrypt
// digest; the plaintext never leaves the login and register handlers.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
