package database

import "errors"

// Sentinel errors returned by the store and the booking engine. Handlers map
// them to HTTP status codes with errors.Is, so callers can tell a conflict
// (retry with different input may help) from a validation failure (it won't).
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidInterval covers end <= start and start in the past.
	ErrInvalidInterval = errors.New("invalid booking interval")
	ErrOwnBooking      = errors.New("owner cannot book own item")
	ErrItemUnavailable = errors.New("item is not available")
	ErrDateTooFar      = errors.New("booking starts too far in the future")

	// ErrTimeConflict means the interval overlaps an approved booking of the
	// same item, either at creation or re-checked at approval time.
	ErrTimeConflict = errors.New("interval overlaps an approved booking")

	ErrForbidden        = errors.New("caller has no permission for this booking")
	ErrNotWaiting       = errors.New("booking is not in waiting state")
	ErrEmailInUse       = errors.New("email already in use")
	ErrEmptyComment     = errors.New("comment text is empty")
	ErrRequestNotFound  = errors.New("item request not found")
	ErrEmptyDescription = errors.New("request description is empty")

	// ErrNoCompletedRental gates review attachment.
	ErrNoCompletedRental = errors.New("no completed rental of item by user")

	// ErrConcurrentModification is the optimistic-lock failure: the row's
	// version moved between read and write.
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
