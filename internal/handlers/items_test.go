package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/middlewares"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveAs routes req through a chi router with user already authenticated.
func serveAs(user *models.User, method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(middlewares.WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.MethodFunc(method, pattern, h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func strPtr(s string) *string { return &s }

func sampleItem() *models.Item {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Item{ID: "i1", Title: "Groceries", UserID: alice.ID, CreatedAt: ts, UpdatedAt: ts}
}

func TestListItemsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockItemLister(ctrl)

	t.Run("success", func(t *testing.T) {
		svc.EXPECT().ListForOwner(gomock.Any(), alice.ID).Return([]models.Item{*sampleItem()}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		w := serveAs(alice, http.MethodGet, "/api/items", NewListItemsHandler(svc), req)

		require.Equal(t, http.StatusOK, w.Code)
		var got models.ItemsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Groceries", got.Items[0].Title)
	})

	t.Run("empty list encodes as array", func(t *testing.T) {
		svc.EXPECT().ListForOwner(gomock.Any(), alice.ID).Return([]models.Item{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		w := serveAs(alice, http.MethodGet, "/api/items", NewListItemsHandler(svc), req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	})

	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		w := serveAs(nil, http.MethodGet, "/api/items", NewListItemsHandler(svc), req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("store error", func(t *testing.T) {
		svc.EXPECT().ListForOwner(gomock.Any(), alice.ID).Return(nil, errors.New("db down"))

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		w := serveAs(alice, http.MethodGet, "/api/items", NewListItemsHandler(svc), req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decodeError(t, w))
	})
}

func TestCreateItemHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		mockSetup    func(m *MockItemCreator)
		expectedCode int
		expectedErr  string
	}{
		{
			name: "title only",
			body: `{"title":"Groceries"}`,
			mockSetup: func(m *MockItemCreator) {
				m.EXPECT().Create(gomock.Any(), alice.ID, "Groceries", "").Return(sampleItem(), nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "missing title",
			body: `{"description":"milk"}`,
			mockSetup: func(m *MockItemCreator) {
				m.EXPECT().Create(gomock.Any(), alice.ID, "", "milk").Return(nil, apperrors.ErrTitleRequired)
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Title is required",
		},
		{
			name:         "invalid JSON",
			body:         `{"title":`,
			mockSetup:    func(m *MockItemCreator) {},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewMockItemCreator(ctrl)
			tt.mockSetup(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/items", encode(t, tt.body))
			w := serveAs(alice, http.MethodPost, "/api/items", NewCreateItemHandler(svc), req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, decodeError(t, w))
				return
			}

			var got models.ItemResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, "Item created", got.Message)
			assert.Equal(t, "i1", got.Item.ID)
		})
	}
}

func TestGetItemHandler(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{name: "owner", expectedCode: http.StatusOK},
		{name: "foreign item", err: apperrors.ErrForbidden, expectedCode: http.StatusForbidden, expectedErr: "Unauthorized"},
		{name: "missing item", err: apperrors.ErrItemNotFound, expectedCode: http.StatusNotFound, expectedErr: "Item not found"},
		{name: "store error", err: errors.New("db down"), expectedCode: http.StatusInternalServerError, expectedErr: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewMockItemGetter(ctrl)
			if tt.err != nil {
				svc.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(nil, tt.err)
			} else {
				svc.EXPECT().Get(gomock.Any(), "i1", alice.ID).Return(sampleItem(), nil)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/items/i1", nil)
			w := serveAs(alice, http.MethodGet, "/api/items/{id}", NewGetItemHandler(svc), req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, decodeError(t, w))
				return
			}
			var got map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Contains(t, got, "item")
			assert.NotContains(t, got, "message")
		})
	}
}

func TestUpdateItemHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedUpd  models.ItemUpdate
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "title and description",
			body:         `{"title":"Shopping","description":"milk"}`,
			expectedUpd:  models.ItemUpdate{Title: strPtr("Shopping"), Description: strPtr("milk")},
			expectedCode: http.StatusOK,
		},
		{
			name:         "description only",
			body:         `{"description":"eggs"}`,
			expectedUpd:  models.ItemUpdate{Description: strPtr("eggs")},
			expectedCode: http.StatusOK,
		},
		{
			name:         "empty title",
			body:         `{"title":""}`,
			expectedUpd:  models.ItemUpdate{Title: strPtr("")},
			err:          apperrors.ErrTitleRequired,
			expectedCode: http.StatusBadRequest,
			expectedErr:  "Title is required",
		},
		{
			name:         "foreign item",
			body:         `{"title":"x"}`,
			expectedUpd:  models.ItemUpdate{Title: strPtr("x")},
			err:          apperrors.ErrForbidden,
			expectedCode: http.StatusForbidden,
			expectedErr:  "Unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewMockItemUpdater(ctrl)
			if tt.err != nil {
				svc.EXPECT().Update(gomock.Any(), "i1", alice.ID, tt.expectedUpd).Return(nil, tt.err)
			} else {
				svc.EXPECT().Update(gomock.Any(), "i1", alice.ID, tt.expectedUpd).Return(sampleItem(), nil)
			}

			req := httptest.NewRequest(http.MethodPut, "/api/items/i1", encode(t, tt.body))
			w := serveAs(alice, http.MethodPut, "/api/items/{id}", NewUpdateItemHandler(svc), req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, decodeError(t, w))
				return
			}
			var got models.ItemResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, "Item updated", got.Message)
		})
	}
}

func TestDeleteItemHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockItemDeleter(ctrl)
	gomock.InOrder(
		svc.EXPECT().Delete(gomock.Any(), "i1", alice.ID).Return(nil),
		svc.EXPECT().Delete(gomock.Any(), "i1", alice.ID).Return(apperrors.ErrItemNotFound),
	)

	req := httptest.NewRequest(http.MethodDelete, "/api/items/i1", nil)
	w := serveAs(alice, http.MethodDelete, "/api/items/{id}", NewDeleteItemHandler(svc), req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Item deleted"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/api/items/i1", nil)
	w = serveAs(alice, http.MethodDelete, "/api/items/{id}", NewDeleteItemHandler(svc), req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Item not found", decodeError(t, w))
}
