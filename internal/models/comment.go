package models

import "time"

// Comment is a review attached to an item by a booker after a completed
// rental. Eligibility is decided by the booking engine, not here.
type Comment struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
