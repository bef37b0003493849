package handlers

import (
	"context"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/middlewares"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
	"github.com/sbilibin2017/gw-item-tracker/internal/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessions struct {
	data map[string]map[string]string
}

func (m *memSessions) Load(_ context.Context, id string) (map[string]string, error) {
	return maps.Clone(m.data[id]), nil
}

func (m *memSessions) Save(_ context.Context, id string, values map[string]string) error {
	m.data[id] = maps.Clone(values)
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

// webEnv is a browser talking to a router with real sessions.
type webEnv struct {
	t       *testing.T
	store   *memSessions
	manager *sessions.Manager
	rd      *Renderer
	router  chi.Router
	cookies []*http.Cookie
}

func newWebEnv(t *testing.T, user *models.User) *webEnv {
	t.Helper()
	store := &memSessions{data: map[string]map[string]string{}}
	mgr := sessions.NewManager(store, "secret")
	rd, err := NewRenderer(mgr)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(mgr.Middleware)
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(middlewares.WithUser(r.Context(), user)))
			})
		})
	}
	return &webEnv{t: t, store: store, manager: mgr, rd: rd, router: r}
}

func (e *webEnv) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range e.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if cs := w.Result().Cookies(); len(cs) > 0 {
		e.cookies = cs
	}
	return w
}

// session returns the values of the browser's current session.
func (e *webEnv) session() map[string]string {
	if len(e.cookies) == 0 {
		return nil
	}
	id, _, _ := strings.Cut(e.cookies[0].Value, ".")
	return e.store.data[id]
}

func TestIndexHandler(t *testing.T) {
	env := newWebEnv(t, nil)
	env.router.Get("/", NewIndexHandler())
	env.router.Get("/seed", func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromContext(r.Context())
		s.Set(sessions.KeyToken, "tok")
		require.NoError(t, env.manager.Save(w, r, s))
	})

	w := env.do(http.MethodGet, "/", nil)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	env.do(http.MethodGet, "/seed", nil)
	w = env.do(http.MethodGet, "/", nil)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestLoginPageHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockLoginer(ctrl)
	env := newWebEnv(t, nil)
	env.router.HandleFunc("/login", NewLoginPageHandler(svc, env.manager, env.rd))

	w := env.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/login"`)

	svc.EXPECT().Login(gomock.Any(), "alice@example.com", "bad").Return(nil, "", apperrors.ErrInvalidCredentials)
	w = env.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"bad"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
	assert.Contains(t, w.Body.String(), `value="alice@example.com"`)

	svc.EXPECT().Login(gomock.Any(), "alice@example.com", "pw123").Return(alice, "JWT_TOKEN", nil)
	w = env.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"pw123"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	values := env.session()
	assert.Equal(t, "JWT_TOKEN", values[sessions.KeyToken])
	assert.Equal(t, alice.ID, values[sessions.KeyUserID])
	assert.Equal(t, "Alice", values[sessions.KeyUserName])
	assert.Contains(t, values, "_flashes")
}

func TestLoginPageHandler_InternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockLoginer(ctrl)
	env := newWebEnv(t, nil)
	env.router.HandleFunc("/login", NewLoginPageHandler(svc, env.manager, env.rd))

	svc.EXPECT().Login(gomock.Any(), "a", "b").Return(nil, "", assert.AnError)
	w := env.do(http.MethodPost, "/login", url.Values{"email": {"a"}, "password": {"b"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRegisterPageHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockRegisterer(ctrl)
	env := newWebEnv(t, nil)
	env.router.HandleFunc("/register", NewRegisterPageHandler(svc, env.manager, env.rd))

	w := env.do(http.MethodPost, "/register", url.Values{"email": {"alice@example.com"}, "password": {"pw123"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "All fields are required")

	svc.EXPECT().Register(gomock.Any(), "alice@example.com", "pw123", "Alice").Return(nil, "", apperrors.ErrEmailTaken)
	form := url.Values{"email": {"alice@example.com"}, "password": {"pw123"}, "name": {"Alice"}}
	w = env.do(http.MethodPost, "/register", form)
	assert.Contains(t, w.Body.String(), "Email already registered")

	svc.EXPECT().Register(gomock.Any(), "alice@example.com", "pw123", "Alice").Return(alice, "JWT_TOKEN", nil)
	w = env.do(http.MethodPost, "/register", form)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "JWT_TOKEN", env.session()[sessions.KeyToken])
}

func TestLogoutHandler(t *testing.T) {
	env := newWebEnv(t, nil)
	env.router.Get("/seed", func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromContext(r.Context())
		s.Set(sessions.KeyToken, "tok")
		s.Set(sessions.KeyUserName, "Alice")
		require.NoError(t, env.manager.Save(w, r, s))
	})
	env.router.Get("/logout", NewLogoutHandler(env.manager))
	env.router.HandleFunc("/login", NewLoginPageHandler(nil, env.manager, env.rd))

	env.do(http.MethodGet, "/seed", nil)
	require.Len(t, env.store.data, 1)

	w := env.do(http.MethodGet, "/logout", nil)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotContains(t, env.session(), sessions.KeyToken)
	assert.Len(t, env.store.data, 1)

	w = env.do(http.MethodGet, "/login", nil)
	assert.Contains(t, w.Body.String(), "You have been logged out")
	assert.Contains(t, w.Body.String(), "flash-info")

	w = env.do(http.MethodGet, "/login", nil)
	assert.NotContains(t, w.Body.String(), "You have been logged out")
}

func TestDashboardHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockItemLister(ctrl)
	env := newWebEnv(t, alice)
	env.router.Get("/dashboard", NewDashboardHandler(svc, env.rd))

	svc.EXPECT().ListForOwner(gomock.Any(), alice.ID).Return([]models.Item{*sampleItem()}, nil)
	w := env.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Groceries")
	assert.Contains(t, w.Body.String(), "/items/i1/edit")
	assert.Contains(t, w.Body.String(), "Alice")

	svc.EXPECT().ListForOwner(gomock.Any(), alice.ID).Return([]models.Item{}, nil)
	w = env.do(http.MethodGet, "/dashboard", nil)
	assert.Contains(t, w.Body.String(), "No items yet.")
}

func TestCreateItemPageHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockItemCreator(ctrl)
	env := newWebEnv(t, alice)
	env.router.HandleFunc("/items/new", NewCreateItemPageHandler(svc, env.manager, env.rd))

	w := env.do(http.MethodGet, "/items/new", nil)
	assert.Contains(t, w.Body.String(), "New item")

	svc.EXPECT().Create(gomock.Any(), alice.ID, "", "milk").Return(nil, apperrors.ErrTitleRequired)
	w = env.do(http.MethodPost, "/items/new", url.Values{"title": {""}, "description": {"milk"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Title is required")
	assert.Contains(t, w.Body.String(), "milk")

	svc.EXPECT().Create(gomock.Any(), alice.ID, "Groceries", "").Return(sampleItem(), nil)
	w = env.do(http.MethodPost, "/items/new", url.Values{"title": {"Groceries"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestEditItemPageHandler(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		form         url.Values
		setup        func(g *MockItemGetter, u *MockItemUpdater)
		expectedCode int
		location     string
		bodyContains string
	}{
		{
			name:   "form shows item",
			method: http.MethodGet,
			setup: func(g *MockItemGetter, u *MockItemUpdater) {
				g.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(sampleItem(), nil)
			},
			expectedCode: http.StatusOK,
			bodyContains: `value="Groceries"`,
		},
		{
			name:   "missing item",
			method: http.MethodGet,
			setup: func(g *MockItemGetter, u *MockItemUpdater) {
				g.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(nil, apperrors.ErrItemNotFound)
			},
			expectedCode: http.StatusFound,
			location:     "/dashboard",
		},
		{
			name:   "foreign item",
			method: http.MethodPost,
			form:   url.Values{"title": {"x"}},
			setup: func(g *MockItemGetter, u *MockItemUpdater) {
				g.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(nil, apperrors.ErrForbidden)
			},
			expectedCode: http.StatusFound,
			location:     "/dashboard",
		},
		{
			name:   "empty title",
			method: http.MethodPost,
			form:   url.Values{"title": {" "}},
			setup: func(g *MockItemGetter, u *MockItemUpdater) {
				g.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(sampleItem(), nil)
			},
			expectedCode: http.StatusOK,
			bodyContains: "Title is required",
		},
		{
			name:   "updated",
			method: http.MethodPost,
			form:   url.Values{"title": {"Shopping"}, "description": {"milk"}},
			setup: func(g *MockItemGetter, u *MockItemUpdater) {
				g.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(sampleItem(), nil)
				u.EXPECT().Update(gomock.Any(), "i1", alice.ID, models.ItemUpdate{
					Title:       strPtr("Shopping"),
					Description: strPtr("milk"),
				}).Return(sampleItem(), nil)
			},
			expectedCode: http.StatusFound,
			location:     "/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			getter := NewMockItemGetter(ctrl)
			updater := NewMockItemUpdater(ctrl)
			tt.setup(getter, updater)

			env := newWebEnv(t, alice)
			env.router.HandleFunc("/items/{id}/edit", NewEditItemPageHandler(getter, updater, env.manager, env.rd))

			w := env.do(tt.method, "/items/i1/edit", tt.form)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
			if tt.bodyContains != "" {
				assert.Contains(t, w.Body.String(), tt.bodyContains)
			}
		})
	}
}

func TestDeleteItemPageHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockItemDeleter(ctrl)
	env := newWebEnv(t, alice)
	env.router.Post("/items/{id}/delete", NewDeleteItemPageHandler(svc, env.manager))

	gomock.InOrder(
		svc.EXPECT().Delete(gomock.Any(), "i1", alice.ID).Return(nil),
		svc.EXPECT().Delete(gomock.Any(), "i1", alice.ID).Return(apperrors.ErrItemNotFound),
		svc.EXPECT().Delete(gomock.Any(), "i1", alice.ID).Return(assert.AnError),
	)

	w := env.do(http.MethodPost, "/items/i1/delete", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, env.session()["_flashes"], "Item deleted successfully!")

	w = env.do(http.MethodPost, "/items/i1/delete", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, env.session()["_flashes"], "Item not found")

	w = env.do(http.MethodPost, "/items/i1/delete", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLoginPageHandler_SessionFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockLoginer(ctrl)
	sm := NewMockSessionManager(ctrl)
	rd, err := NewRenderer(sm)
	require.NoError(t, err)

	env := newWebEnv(t, nil)
	env.router.HandleFunc("/login", NewLoginPageHandler(svc, sm, rd))

	svc.EXPECT().Login(gomock.Any(), "alice@example.com", "pw123").Return(alice, "JWT_TOKEN", nil)
	sm.EXPECT().Renew(gomock.Any(), gomock.Any()).Return(assert.AnError)

	w := env.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"pw123"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// A failing session save still renders the page.
	sm.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(assert.AnError)
	w = env.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
