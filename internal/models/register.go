package models

// RegisterRequest represents the JSON body for user registration
// swagger:model RegisterRequest
type RegisterRequest struct {
	// Email
	// required: true
	// example: alice@example.com
	Email string `json:"email"`

	// Password
	// required: true
	// example: pw123
	Password string `json:"password"`

	// Display name
	// example: Alice
	Name string `json:"name"`
}
