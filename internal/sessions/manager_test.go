package sessions

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	data    map[string]map[string]string
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]map[string]string{}}
}

func (m *memStore) Load(_ context.Context, id string) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return maps.Clone(m.data[id]), nil
}

func (m *memStore) Save(_ context.Context, id string, values map[string]string) error {
	m.data[id] = maps.Clone(values)
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

// serve runs h behind the manager middleware and returns the recorder.
func serve(m *Manager, cookie *http.Cookie, h func(w http.ResponseWriter, r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(h)).ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestManager_RoundTrip(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, "secret", WithMaxAge(time.Hour))

	rr := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		require.NotNil(t, s)
		s.Set(KeyToken, "tok")
		s.Set(KeyUserName, "Alice")
		require.NoError(t, m.Save(w, r, s))
	})

	cookie := sessionCookie(t, rr)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Len(t, store.data, 1)

	serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		tok, ok := s.Get(KeyToken)
		assert.True(t, ok)
		assert.Equal(t, "tok", tok)
		name, _ := s.Get(KeyUserName)
		assert.Equal(t, "Alice", name)
	})
}

func TestManager_ForgedCookie(t *testing.T) {
	store := newMemStore()
	store.data["victim"] = map[string]string{KeyToken: "stolen"}
	m := NewManager(store, "secret")

	forged := &http.Cookie{Name: "session", Value: "victim.AAAA"}
	serve(m, forged, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		assert.NotEqual(t, "victim", s.ID())
		_, ok := s.Get(KeyToken)
		assert.False(t, ok)
	})

	other := NewManager(store, "other-secret")
	serve(m, &http.Cookie{Name: "session", Value: other.sign("victim")}, func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context()).Get(KeyToken)
		assert.False(t, ok)
	})
}

func TestManager_LoadErrorStartsFresh(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("redis down")
	m := NewManager(store, "secret")

	serve(m, &http.Cookie{Name: "session", Value: m.sign("abc")}, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		require.NotNil(t, s)
		assert.Empty(t, s.Values())
	})
}

func TestManager_UnchangedSessionNotSaved(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, "secret")

	rr := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Save(w, r, FromContext(r.Context())))
	})

	assert.Empty(t, rr.Result().Cookies())
	assert.Empty(t, store.data)
}

func TestManager_Renew(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, "secret")

	rr := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyToken, "tok")
		require.NoError(t, m.Save(w, r, s))
	})
	cookie := sessionCookie(t, rr)

	var oldID, newID string
	rr = serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		oldID = s.ID()
		require.NoError(t, m.Renew(r.Context(), s))
		newID = s.ID()
		assert.Empty(t, s.Values())
		s.AddFlash(FlashInfo, "You have been logged out")
		require.NoError(t, m.Save(w, r, s))
	})

	assert.NotEqual(t, oldID, newID)
	assert.NotContains(t, store.data, oldID)
	assert.Contains(t, store.data, newID)

	serve(m, sessionCookie(t, rr), func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		_, ok := s.Get(KeyToken)
		assert.False(t, ok)
		assert.Equal(t, []Flash{{Kind: FlashInfo, Message: "You have been logged out"}}, s.Flashes())
	})
}

func TestManager_SaveEmptyExpiresCookie(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, "secret")

	rr := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Set(KeyToken, "tok")
		require.NoError(t, m.Save(w, r, s))
	})
	cookie := sessionCookie(t, rr)

	rr = serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		s.Delete(KeyToken)
		require.NoError(t, m.Save(w, r, s))
	})

	assert.Equal(t, -1, sessionCookie(t, rr).MaxAge)
	assert.Empty(t, store.data)
}

func TestSession_Flashes(t *testing.T) {
	s := newSession()
	assert.Nil(t, s.Flashes())

	s.AddFlash(FlashSuccess, "Item created successfully")
	s.AddFlash(FlashError, "Title is required")

	assert.Equal(t, []Flash{
		{Kind: FlashSuccess, Message: "Item created successfully"},
		{Kind: FlashError, Message: "Title is required"},
	}, s.Flashes())
	assert.Nil(t, s.Flashes())
}

func TestSession_Clear(t *testing.T) {
	s := newSession()
	s.Set(KeyUserID, "u1")
	s.AddFlash(FlashInfo, "hi")
	s.Clear()
	assert.Empty(t, s.Values())
	assert.Nil(t, s.Flashes())
}
