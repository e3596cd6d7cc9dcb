package models

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusWaiting  BookingStatus = "waiting"
	StatusApproved BookingStatus = "approved"
	StatusRejected BookingStatus = "rejected"
)

// validTransitions is the whole state machine: waiting moves exactly once
// to approved or rejected, both terminal.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusWaiting:  {StatusApproved, StatusRejected},
	StatusApproved: {},
	StatusRejected: {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s BookingStatus) IsTerminal() bool {
	next, ok := validTransitions[s]
	return !ok || len(next) == 0
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) String() string { return string(s) }

func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", raw)
	}
	return status, nil
}

// Booking is a request to rent an item for the half-open interval
// [StartTime, EndTime). OwnerID is captured from the item at creation time
// and stays the authority for approval even if the item changes hands later.
type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"item_id"`
	BookerID  int64         `json:"booker_id"`
	OwnerID   int64         `json:"owner_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Version   int64         `json:"version"`
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints (one booking ending exactly when another starts) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
