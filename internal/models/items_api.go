package models

// ItemRequest is the JSON body for creating or updating an item. Absent
// fields are left nil so updates only touch what the client sent.
// swagger:model ItemRequest
type ItemRequest struct {
	// Title
	// example: Groceries
	Title *string `json:"title"`

	// Description
	// example: milk, eggs
	Description *string `json:"description"`
}

// ItemResponse wraps a single item
// swagger:model ItemResponse
type ItemResponse struct {
	// Outcome message
	// example: Item created
	Message string `json:"message,omitempty"`

	Item *Item `json:"item"`
}

// ItemsResponse wraps the items of the current user
// swagger:model ItemsResponse
type ItemsResponse struct {
	Items []Item `json:"items"`
}

// MessageResponse carries only a message
// swagger:model MessageResponse
type MessageResponse struct {
	// Outcome message
	// example: Item deleted
	Message string `json:"message"`
}
