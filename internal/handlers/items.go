package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/middlewares"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
)

// ItemLister lists the items of one owner.
type ItemLister interface {
	ListForOwner(ctx context.Context, ownerID string) ([]models.Item, error)
}

// ItemCreator creates items.
type ItemCreator interface {
	Create(ctx context.Context, ownerID, title, description string) (*models.Item, error)
}

// ItemGetter loads an item on behalf of a requester.
type ItemGetter interface {
	Get(ctx context.Context, itemID, requesterID string) (*models.Item, error)
}

// ItemUpdater patches an item on behalf of a requester.
type ItemUpdater interface {
	Update(ctx context.Context, itemID, requesterID string, upd models.ItemUpdate) (*models.Item, error)
}

// ItemDeleter deletes an item on behalf of a requester.
type ItemDeleter interface {
	Delete(ctx context.Context, itemID, requesterID string) error
}

// currentUser returns the user placed in the context by the auth middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, apperrors.ErrMissingToken)
	}
	return user, ok
}

func decodeItemRequest(r *http.Request) (models.ItemRequest, error) {
	var req models.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, apperrors.ErrInvalidBody
	}
	return req, nil
}

// NewListItemsHandler returns an HTTP handler listing the caller's items.
// @Summary List items
// @Description Returns every item owned by the authenticated user
// @Tags items
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ItemsResponse
// @Failure 401 {object} models.ErrorResponse "Authentication failed"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/items [get]
func NewListItemsHandler(svc ItemLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListForOwner(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, models.ItemsResponse{Items: items})
	}
}

// NewCreateItemHandler returns an HTTP handler creating an item for the caller.
// @Summary Create item
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ItemRequest true "Item"
// @Success 201 {object} models.ItemResponse "Item created"
// @Failure 400 {object} models.ErrorResponse "Title is required"
// @Failure 401 {object} models.ErrorResponse "Authentication failed"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/items [post]
func NewCreateItemHandler(svc ItemCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		req, err := decodeItemRequest(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		var title, description string
		if req.Title != nil {
			title = *req.Title
		}
		if req.Description != nil {
			description = *req.Description
		}

		item, err := svc.Create(r.Context(), user.ID, title, description)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, models.ItemResponse{Message: "Item created", Item: item})
	}
}

// NewGetItemHandler returns an HTTP handler fetching one of the caller's items.
// @Summary Get item
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} models.ItemResponse
// @Failure 401 {object} models.ErrorResponse "Authentication failed"
// @Failure 403 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/items/{id} [get]
func NewGetItemHandler(svc ItemGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		item, err := svc.Get(r.Context(), chi.URLParam(r, "id"), user.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, models.ItemResponse{Item: item})
	}
}

// NewUpdateItemHandler returns an HTTP handler patching one of the caller's items.
// Only the fields present in the body are changed.
// @Summary Update item
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param request body models.ItemRequest true "Fields to change"
// @Success 200 {object} models.ItemResponse "Item updated"
// @Failure 400 {object} models.ErrorResponse "Title is required"
// @Failure 401 {object} models.ErrorResponse "Authentication failed"
// @Failure 403 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/items/{id} [put]
func NewUpdateItemHandler(svc ItemUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		req, err := decodeItemRequest(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		item, err := svc.Update(r.Context(), chi.URLParam(r, "id"), user.ID, models.ItemUpdate{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, models.ItemResponse{Message: "Item updated", Item: item})
	}
}

// NewDeleteItemHandler returns an HTTP handler deleting one of the caller's items.
// @Summary Delete item
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} models.MessageResponse "Item deleted"
// @Failure 401 {object} models.ErrorResponse "Authentication failed"
// @Failure 403 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/items/{id} [delete]
func NewDeleteItemHandler(svc ItemDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, models.MessageResponse{Message: "Item deleted"})
	}
}
