package models

// LoginRequest represents the JSON body for user login
// swagger:model LoginRequest
type LoginRequest struct {
	// Email
	// required: true
	// example: alice@example.com
	Email string `json:"email"`

	// Password
	// required: true
	// example: pw123
	Password string `json:"password"`
}

// AuthResponse is returned after a successful registration or login
// swagger:model AuthResponse
type AuthResponse struct {
	// Outcome message
	// example: Login successful
	Message string `json:"message"`

	// Signed access token
	// example: JWT_TOKEN
	Token string `json:"token"`

	// Authenticated user
	User *User `json:"user"`
}

// ErrorResponse is the body of every failed API call
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: Token is missing
	Error string `json:"error"`
}
