package services

//go:generate mockgen -source=identity.go -destination=identity_mock.go -package=services

import (
	"context"
	"fmt"

	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
)

// UserGetter loads users by id.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.UserDB, error)
}

// TokenVerifier verifies a token and returns the user id it was issued for.
type TokenVerifier interface {
	GetUserID(ctx context.Context, tokenString string) (string, error)
}

// IdentityService turns a token into the current user.
type IdentityService struct {
	users UserGetter
	jwt   TokenVerifier
}

func NewIdentityService(users UserGetter, jwt TokenVerifier) *IdentityService {
	return &IdentityService{users: users, jwt: jwt}
}

// Resolve verifies token and loads its user. The user is re-read on every
// call, so a user deleted after the token was issued fails with
// apperrors.ErrUserNotFound.
func (svc *IdentityService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.ErrMissingToken
	}

	userID, err := svc.jwt.GetUserID(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to load user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	return user.Public(), nil
}
