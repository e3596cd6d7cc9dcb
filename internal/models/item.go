package models

import "time"

type Item struct {
	ID          int64  `json:"id" yaml:"id"`
	OwnerID     int64  `json:"owner_id" yaml:"owner_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Available   bool   `json:"available" yaml:"available"`
	// RequestID is set when the item was listed in answer to an item request.
	RequestID *int64    `json:"request_id,omitempty" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// BookingWindows carries the latest started and next starting approved
// bookings of an item, shown on the item detail view.
type BookingWindows struct {
	Last *Booking `json:"last_booking,omitempty"`
	Next *Booking `json:"next_booking,omitempty"`
}
