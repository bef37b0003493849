package services

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=services

import (
	"context"
	"fmt"
	"time"

	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
)

// UserStore defines the user persistence operations needed by AuthService.
type UserStore interface {
	Create(ctx context.Context, user *models.UserDB) (*models.UserDB, error)
	GetByEmail(ctx context.Context, email string) (*models.UserDB, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(hash, candidate string) bool
}

// JWTGenerator defines an interface for generating JWT tokens.
type JWTGenerator interface {
	Generate(ctx context.Context, userID string) (string, error)
}

// AuthService handles registration and login.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	jwt    JWTGenerator
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(users UserStore, hasher PasswordHasher, jwt JWTGenerator) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a user and returns it together with a fresh token.
//
// The email uniqueness check and the insert are separate store calls, so two
// concurrent registrations with the same email may both succeed.
func (svc *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, string, error) {
	log := logger.FromContext(ctx)

	if email == "" || password == "" {
		return nil, "", apperrors.ErrCredentialsRequired
	}

	existing, err := svc.users.GetByEmail(ctx, email)
	if err != nil {
		log.Errorw("failed to check user exists", "error", err)
		return nil, "", fmt.Errorf("check user exists: %w", err)
	}
	if existing != nil {
		log.Infow("email already registered", "user_id", existing.ID)
		return nil, "", apperrors.ErrEmailTaken
	}

	hash, err := svc.hasher.Hash(ctx, password)
	if err != nil {
		log.Errorw("failed to hash password", "error", err)
		return nil, "", err
	}

	now := time.Now().UTC()
	user, err := svc.users.Create(ctx, &models.UserDB{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		log.Errorw("failed to save user", "error", err)
		return nil, "", fmt.Errorf("save user: %w", err)
	}

	token, err := svc.jwt.Generate(ctx, user.ID)
	if err != nil {
		log.Errorw("failed to generate JWT", "user_id", user.ID, "error", err)
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	log.Infow("user registered", "user_id", user.ID)
	return user.Public(), token, nil
}

// Login authenticates a user by email and password and returns a fresh token.
func (svc *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	log := logger.FromContext(ctx)

	if email == "" || password == "" {
		return nil, "", apperrors.ErrCredentialsRequired
	}

	user, err := svc.users.GetByEmail(ctx, email)
	if err != nil {
		log.Errorw("failed to get user", "error", err)
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if user == nil || !svc.hasher.Verify(user.PasswordHash, password) {
		log.Infow("invalid credentials")
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, err := svc.jwt.Generate(ctx, user.ID)
	if err != nil {
		log.Errorw("failed to generate JWT", "user_id", user.ID, "error", err)
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user.Public(), token, nil
}
