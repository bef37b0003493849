package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
	"github.com/sbilibin2017/gw-item-tracker/internal/sessions"
)

// TokenExtractor reads a bearer token from the request.
type TokenExtractor interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
}

// IdentityResolver turns a token into the user it was issued to.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// SessionSaver persists a modified session.
type SessionSaver interface {
	Save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error
}

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by the auth middlewares.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey{}).(*models.User)
	return user, ok && user != nil
}

// BearerAuth guards API routes. The token comes from the Authorization header,
// or from the browser session when the header is absent.
func BearerAuth(extractor TokenExtractor, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := extractor.GetTokenFromRequest(ctx, r)
			if errors.Is(err, apperrors.ErrMissingToken) {
				if s := sessions.FromContext(ctx); s != nil {
					if t, ok := s.Get(sessions.KeyToken); ok && t != "" {
						token, err = t, nil
					}
				}
			}
			if err != nil {
				logger.FromContext(ctx).Warnw("authorization failed", "error", err)
				writeError(ctx, w, http.StatusUnauthorized, apperrors.Message(err, "Unauthorized"))
				return
			}

			user, err := resolver.Resolve(ctx, token)
			if err != nil {
				if errors.Is(err, apperrors.ErrAuthentication) {
					logger.FromContext(ctx).Warnw("authorization failed", "error", err)
					writeError(ctx, w, http.StatusUnauthorized, apperrors.Message(err, "Unauthorized"))
					return
				}
				logger.FromContext(ctx).Errorw("failed to resolve identity", "error", err)
				writeError(ctx, w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// SessionAuth guards browser pages. Requests without a usable session token
// are redirected to /login; a token that no longer resolves is removed from
// the session first.
func SessionAuth(resolver IdentityResolver, saver SessionSaver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			s := sessions.FromContext(ctx)
			if s == nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			token, ok := s.Get(sessions.KeyToken)
			if !ok || token == "" {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			user, err := resolver.Resolve(ctx, token)
			if err != nil {
				if !errors.Is(err, apperrors.ErrAuthentication) {
					logger.FromContext(ctx).Errorw("failed to resolve identity", "error", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}

				s.Delete(sessions.KeyToken)
				if err := saver.Save(w, r, s); err != nil {
					logger.FromContext(ctx).Errorw("failed to save session", "error", err)
				}
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg}); err != nil {
		logger.FromContext(ctx).Errorw("failed to encode response", "error", err)
	}
}
