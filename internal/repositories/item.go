package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
)

const itemsCollection = "items"

// ItemRepository persists items in the items collection.
type ItemRepository struct {
	docs *DocumentStore
}

func NewItemRepository(docs *DocumentStore) *ItemRepository {
	return &ItemRepository{docs: docs}
}

// Create stores a new item and returns it with the generated id.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	id, err := r.docs.Create(ctx, itemsCollection, item)
	if err != nil {
		return nil, err
	}

	created := *item
	created.ID = id
	return &created, nil
}

// GetByID returns the item with the given id, or nil when there is none.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := r.docs.Get(ctx, itemsCollection, id, &item)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByOwner returns every item whose owner is userID, in store order.
func (r *ItemRepository) ListByOwner(ctx context.Context, userID string) ([]models.Item, error) {
	it, err := r.docs.Query(ctx, itemsCollection, Filter{Field: "user_id", Value: userID}, 0)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	items := []models.Item{}
	for it.Next() {
		var item models.Item
		if err := it.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, it.Err()
}

// Update patches the supplied fields and the modification time.
func (r *ItemRepository) Update(ctx context.Context, id string, upd models.ItemUpdate, updatedAt time.Time) error {
	fields := map[string]any{"updated_at": updatedAt}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}

	err := r.docs.Update(ctx, itemsCollection, id, fields)
	if errors.Is(err, ErrDocumentNotFound) {
		return apperrors.ErrItemNotFound
	}
	return err
}

// Delete removes the item.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, itemsCollection, id)
}
