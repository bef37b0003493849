package models

import (
	"time"
)

// UserDB is a user document as persisted in the users collection.
type UserDB struct {
	ID           string    `json:"id"`         // Store-generated identifier
	Email        string    `json:"email"`      // Unique, case-sensitive email
	PasswordHash string    `json:"password"`   // bcrypt digest, never the raw password
	Name         string    `json:"name"`       // Display name
	CreatedAt    time.Time `json:"created_at"` // Creation timestamp
	UpdatedAt    time.Time `json:"updated_at"` // Last update timestamp
}

// User is the identity exposed to handlers and clients. It never carries the password hash.
// swagger:model User
type User struct {
	// User identifier
	// example: 3f1c2c0e-5a1b-4f5e-9c2a-2f4c8f0d1e7a
	ID string `json:"id"`

	// Email address
	// example: alice@example.com
	Email string `json:"email"`

	// Display name
	// example: Alice
	Name string `json:"name"`
}

// Public strips the password hash and timestamps from a stored user.
func (u *UserDB) Public() *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, Email: u.Email, Name: u.Name}
}
