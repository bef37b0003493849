package sessions

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
)

// Store persists session values by session id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string) error
	Delete(ctx context.Context, id string) error
}

// Manager loads the session named by the request cookie and writes it back on Save.
type Manager struct {
	store      Store
	secret     []byte
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCookieName sets the session cookie name.
func WithCookieName(name string) Option {
	return func(m *Manager) { m.cookieName = name }
}

// WithMaxAge sets the cookie lifetime.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) { m.maxAge = d }
}

// WithSecure marks the cookie as HTTPS-only.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// NewManager creates a Manager. Cookies are signed with secret.
func NewManager(store Store, secret string, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		secret:     []byte(secret),
		cookieName: "session",
		maxAge:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type sessionKey struct{}

// FromContext returns the session attached by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// NewContext attaches s to ctx.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// Middleware attaches the request's session to the context. A missing,
// forged or unreadable cookie yields a fresh empty session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s := m.load(ctx, r)
		next.ServeHTTP(w, r.WithContext(NewContext(ctx, s)))
	})
}

func (m *Manager) load(ctx context.Context, r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return newSession()
	}

	id, ok := m.verify(cookie.Value)
	if !ok {
		logger.FromContext(ctx).Warnw("session cookie signature mismatch")
		return newSession()
	}

	values, err := m.store.Load(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to load session", "error", err)
		return newSession()
	}
	if len(values) == 0 {
		return newSession()
	}

	return &Session{id: id, values: values}
}

// Save persists the session and sets the cookie. It must run before the
// response header is written.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if !s.changed {
		return nil
	}

	if len(s.values) == 0 {
		if !s.isNew {
			if err := m.store.Delete(r.Context(), s.id); err != nil {
				return err
			}
		}
		m.expireCookie(w)
		s.changed = false
		return nil
	}

	if err := m.store.Save(r.Context(), s.id, s.values); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(s.id),
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.isNew = false
	s.changed = false
	return nil
}

// Renew drops the stored session and moves s to a new id with no values.
// Call it on login and logout so a session id never outlives an identity change.
func (m *Manager) Renew(ctx context.Context, s *Session) error {
	if !s.isNew {
		if err := m.store.Delete(ctx, s.id); err != nil {
			return err
		}
	}
	fresh := newSession()
	fresh.changed = true
	*s = *fresh
	return nil
}

func (m *Manager) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	id, _, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(value), []byte(m.sign(id))) {
		return "", false
	}
	return id, true
}
