package services

//go:generate mockgen -source=items.go -destination=items_mock.go -package=services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
	"github.com/segmentio/kafka-go"
)

// ItemStore defines the item persistence operations. GetByID returns nil
// without error when the item does not exist.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Item, error)
	Update(ctx context.Context, id string, upd models.ItemUpdate, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// ItemService enforces that users only read and change items they own.
type ItemService struct {
	store       ItemStore
	kafkaWriter KafkaWriter
	now         func() time.Time
}

// NewItemService creates an ItemService. kafkaWriter may be nil, in which
// case item events are not published.
func NewItemService(store ItemStore, kafkaWriter KafkaWriter) *ItemService {
	return &ItemService{
		store:       store,
		kafkaWriter: kafkaWriter,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new item owned by ownerID.
func (s *ItemService) Create(ctx context.Context, ownerID, title, description string) (*models.Item, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.ErrTitleRequired
	}

	now := s.now()
	item, err := s.store.Create(ctx, &models.Item{
		Title:       title,
		Description: description,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to create item", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.publish(ctx, models.ItemCreated, item)
	return item, nil
}

// Get returns the item if it exists and is owned by requesterID.
func (s *ItemService) Get(ctx context.Context, itemID, requesterID string) (*models.Item, error) {
	item, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to get item", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, apperrors.ErrItemNotFound
	}
	if item.UserID != requesterID {
		logger.FromContext(ctx).Warnw("item access denied", "item_id", itemID, "user_id", requesterID)
		return nil, apperrors.ErrForbidden
	}
	return item, nil
}

// Update changes the title and/or description of an owned item and returns
// the stored result. An explicitly supplied empty title is rejected.
func (s *ItemService) Update(ctx context.Context, itemID, requesterID string, upd models.ItemUpdate) (*models.Item, error) {
	if _, err := s.Get(ctx, itemID, requesterID); err != nil {
		return nil, err
	}

	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, apperrors.ErrTitleRequired
	}

	if err := s.store.Update(ctx, itemID, upd, s.now()); err != nil {
		logger.FromContext(ctx).Errorw("failed to update item", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("update item: %w", err)
	}

	item, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("reload item: %w", err)
	}
	if item == nil {
		return nil, apperrors.ErrItemNotFound
	}

	s.publish(ctx, models.ItemUpdated, item)
	return item, nil
}

// Delete removes an owned item. The existence check and the delete are
// separate store calls; deleting an id that is already gone fails with
// apperrors.ErrItemNotFound.
func (s *ItemService) Delete(ctx context.Context, itemID, requesterID string) error {
	item, err := s.Get(ctx, itemID, requesterID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, itemID); err != nil {
		logger.FromContext(ctx).Errorw("failed to delete item", "item_id", itemID, "error", err)
		return fmt.Errorf("delete item: %w", err)
	}

	s.publish(ctx, models.ItemDeleted, item)
	return nil
}

// ListForOwner returns all items owned by ownerID; empty when there are none.
func (s *ItemService) ListForOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	items, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to list items", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

// publish sends an item event to Kafka. Failures are logged, never returned.
func (s *ItemService) publish(ctx context.Context, operation string, item *models.Item) {
	log := logger.FromContext(ctx)

	if s.kafkaWriter == nil {
		log.Debugw("Kafka writer not configured, skipping publishing", "operation", operation, "item_id", item.ID)
		return
	}

	event := models.ItemEvent{
		EventID:   uuid.NewString(),
		Timestamp: s.now().Unix(),
		Operation: operation,
		ItemID:    item.ID,
		UserID:    item.UserID,
		Title:     item.Title,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Errorw("Failed to marshal item event", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(item.ID),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		log.Errorw("Failed to publish item event", "event_id", event.EventID, "operation", operation, "error", err)
	} else {
		log.Infow("Item event published", "event_id", event.EventID, "operation", operation, "item_id", item.ID)
	}
}
