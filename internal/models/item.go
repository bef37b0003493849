package models

import "time"

// Item is a tracked item owned by exactly one user.
// swagger:model Item
type Item struct {
	ID          string    `json:"id"`          // Store-generated identifier
	Title       string    `json:"title"`       // Non-empty title
	Description string    `json:"description"` // Optional description, empty by default
	UserID      string    `json:"user_id"`     // Owner, immutable after creation
	CreatedAt   time.Time `json:"created_at"`  // Creation timestamp
	UpdatedAt   time.Time `json:"updated_at"`  // Last update timestamp
}

// ItemUpdate holds the fields a caller explicitly supplied for an update.
// Nil means "leave unchanged".
type ItemUpdate struct {
	Title       *string
	Description *string
}

// Item event operations.
const (
	ItemCreated = "item.created"
	ItemUpdated = "item.updated"
	ItemDeleted = "item.deleted"
)

// ItemEvent is published after an item has been created, updated or deleted.
type ItemEvent struct {
	EventID   string `json:"event_id"`  // Unique event identifier
	Timestamp int64  `json:"timestamp"` // Unix timestamp (seconds) of the change
	Operation string `json:"operation"` // One of ItemCreated, ItemUpdated, ItemDeleted
	ItemID    string `json:"item_id"`   // Affected item
	UserID    string `json:"user_id"`   // Owner of the item
	Title     string `json:"title,omitempty"`
}
