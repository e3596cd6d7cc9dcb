package domain

import (
	"context"
	"time"

	"lendit/internal/models"
)

// Repository is the durable booking store. Creation and decision run as single
// transactions so the non-overlap invariant for approved bookings holds under
// concurrency.
type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingForUser(ctx context.Context, id, userID int64) (*models.Booking, error)
	DecideBooking(ctx context.Context, id, fromVersion int64, to models.BookingStatus) (*models.Booking, error)
	ListBookingsByBooker(ctx context.Context, bookerID int64, filter models.ListFilter, now time.Time) ([]*models.Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID int64, filter models.ListFilter, now time.Time) ([]*models.Booking, error)
	HasCompletedRental(ctx context.Context, userID, itemID int64, now time.Time) (bool, error)
	LastBookingForItem(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	NextBookingForItem(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	CountItemsByOwner(ctx context.Context, ownerID int64) (int, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}

// UserDirectory is the narrow view of the user collaborator the booking
// engine is allowed to see.
type UserDirectory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// ItemCatalog is the narrow view of the item collaborator: ownership and the
// availability flag, nothing else.
type ItemCatalog interface {
	GetItem(ctx context.Context, id int64) (*models.Item, error)
}

// RentalHistory is the single interface the booking engine exposes to the
// review collaborator.
type RentalHistory interface {
	HasCompletedRental(ctx context.Context, userID, itemID int64) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker receives booking mutations destined for the report mirror.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error
}

// EligibilityCache caches positive completed-rental answers and throttles
// per-user request rates. Backed by redis with a memory fallback.
type EligibilityCache interface {
	GetCompletedRental(ctx context.Context, userID, itemID int64) (bool, error)
	SetCompletedRental(ctx context.Context, userID, itemID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error)
	DecideBooking(ctx context.Context, bookingID, actingUserID int64, approve bool) (*models.Booking, error)
	GetBookingByID(ctx context.Context, bookingID, callerID int64) (*models.Booking, error)
	ListByBooker(ctx context.Context, bookerID int64, filter models.ListFilter) ([]*models.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64, filter models.ListFilter) ([]*models.Booking, error)
	HasCompletedRental(ctx context.Context, userID, itemID int64) (bool, error)
	ItemBookingWindows(ctx context.Context, itemID int64) (*models.BookingWindows, error)
}

type ItemService interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, callerID int64, item *models.Item) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
}

type UserService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	UserExists(ctx context.Context, id int64) (bool, error)
}

// RequestService manages item requests: wishes posted by users looking for
// an item nobody has listed yet.
type RequestService interface {
	CreateRequest(ctx context.Context, requestorID int64, description string) (*models.ItemRequest, error)
	GetRequest(ctx context.Context, callerID, requestID int64) (*models.ItemRequest, error)
	ListOwnRequests(ctx context.Context, callerID int64) ([]*models.ItemRequest, error)
	ListOtherRequests(ctx context.Context, callerID int64) ([]*models.ItemRequest, error)
}

type CommentService interface {
	AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error)
	ListByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
}
