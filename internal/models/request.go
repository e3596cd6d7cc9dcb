package models

import "time"

// ItemRequest is a wish posted by a user looking for an item nobody has
// listed yet. Owners answer by creating items that reference the request.
type ItemRequest struct {
	ID          int64     `json:"id"`
	RequestorID int64     `json:"requestor_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	// Items lists the items created in answer to this request. Populated on
	// reads, never persisted with the request row itself.
	Items []*Item `json:"items,omitempty"`
}
