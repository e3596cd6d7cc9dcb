package service

import (
	"context"
	"time"

	"lendit/internal/database"
	"lendit/internal/domain"
	"lendit/internal/events"
	"lendit/internal/metrics"
	"lendit/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the booking engine: it validates and creates bookings,
// executes owner decisions, and answers the access-controlled retrieval and
// classification queries. It never mutates users or items; those arrive
// through the narrow UserDirectory and ItemCatalog collaborators.
type BookingService struct {
	repo           domain.Repository
	users          domain.UserDirectory
	catalog        domain.ItemCatalog
	eventBus       domain.EventPublisher
	syncWorker     domain.SyncWorker
	maxAdvanceDays int
	logger         *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	users domain.UserDirectory,
	catalog domain.ItemCatalog,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	maxAdvanceDays int,
	logger *zerolog.Logger,
) *BookingService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 365
	}
	return &BookingService{
		repo:           repo,
		users:          users,
		catalog:        catalog,
		eventBus:       eventBus,
		syncWorker:     syncWorker,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
	}
}

// ValidateInterval checks the [start, end) request window: end strictly after
// start, start at or after now, start not beyond the advance horizon.
func (s *BookingService) ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return database.ErrInvalidInterval
	}

	now := time.Now()
	if start.Before(now) {
		return database.ErrInvalidInterval
	}
	if start.After(now.AddDate(0, 0, s.maxAdvanceDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// CreateBooking validates the request against the user directory and item
// catalog and persists a waiting booking. Only approved bookings reserve the
// calendar, so concurrent waiting requests for the same window may coexist
// until the owner adjudicates.
func (s *BookingService) CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error) {
	if err := s.ValidateInterval(start, end); err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == bookerID {
		return nil, database.ErrOwnBooking
	}
	if !item.Available {
		return nil, database.ErrItemUnavailable
	}

	booking := &models.Booking{
		ItemID:    itemID,
		BookerID:  bookerID,
		OwnerID:   item.OwnerID, // snapshot; later ownership transfers do not move pending approvals
		StartTime: start,
		EndTime:   end,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		if err == database.ErrTimeConflict {
			metrics.IncConflict()
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking)
	s.enqueueSync(ctx, booking, "upsert")

	s.logger.Info().Int64("booking_id", booking.ID).Int64("item_id", itemID).Int64("booker_id", bookerID).Msg("booking created")
	return booking, nil
}

// DecideBooking executes the single permitted transition: the item's owner
// moves a waiting booking to approved or rejected. The store re-validates the
// non-overlap invariant at commit time, so the losing one of two concurrent
// approvals fails with ErrTimeConflict instead of corrupting the calendar.
func (s *BookingService) DecideBooking(ctx context.Context, bookingID, actingUserID int64, approve bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != actingUserID {
		return nil, database.ErrForbidden
	}
	if booking.Status != models.StatusWaiting {
		return nil, database.ErrNotWaiting
	}

	to := models.StatusRejected
	if approve {
		to = models.StatusApproved
	}

	updated, err := s.repo.DecideBooking(ctx, bookingID, booking.Version, to)
	if err != nil {
		if err == database.ErrTimeConflict {
			metrics.IncConflict()
		}
		return nil, err
	}

	metrics.IncDecision(to.String())
	eventType := events.EventBookingRejected
	if approve {
		eventType = events.EventBookingApproved
	}
	s.publishEvent(eventType, updated)
	s.enqueueSync(ctx, updated, "update_status")

	s.logger.Info().Int64("booking_id", bookingID).Str("status", to.String()).Msg("booking decided")
	return updated, nil
}

// GetBookingByID returns the booking only to its booker or owner. Anyone else
// gets ErrBookingNotFound: existence is deliberately not confirmed.
func (s *BookingService) GetBookingByID(ctx context.Context, bookingID, callerID int64) (*models.Booking, error) {
	return s.repo.GetBookingForUser(ctx, bookingID, callerID)
}

func (s *BookingService) ListByBooker(ctx context.Context, bookerID int64, filter models.ListFilter) ([]*models.Booking, error) {
	exists, err := s.users.UserExists(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}
	return s.repo.ListBookingsByBooker(ctx, bookerID, filter, time.Now())
}

// ListByOwner returns bookings against the caller's items. A user with no
// listings simply has no owner-side bookings, so the result is an empty list
// rather than an error.
func (s *BookingService) ListByOwner(ctx context.Context, ownerID int64, filter models.ListFilter) ([]*models.Booking, error) {
	exists, err := s.users.UserExists(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}

	owned, err := s.repo.CountItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owned == 0 {
		return []*models.Booking{}, nil
	}

	return s.repo.ListBookingsByOwner(ctx, ownerID, filter, time.Now())
}

// HasCompletedRental is the sole interface exposed to the review collaborator:
// true iff the user has an approved booking of the item whose end has passed.
func (s *BookingService) HasCompletedRental(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.repo.HasCompletedRental(ctx, userID, itemID, time.Now())
}

// ItemBookingWindows returns the latest started and next starting approved
// bookings of an item for the catalog's detail view.
func (s *BookingService) ItemBookingWindows(ctx context.Context, itemID int64) (*models.BookingWindows, error) {
	if _, err := s.catalog.GetItem(ctx, itemID); err != nil {
		return nil, err
	}

	now := time.Now()
	last, err := s.repo.LastBookingForItem(ctx, itemID, now)
	if err != nil {
		return nil, err
	}
	next, err := s.repo.NextBookingForItem(ctx, itemID, now)
	if err != nil {
		return nil, err
	}
	return &models.BookingWindows{Last: last, Next: next}, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		BookerID:  booking.BookerID,
		OwnerID:   booking.OwnerID,
		Status:    booking.Status.String(),
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.syncWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = booking.Status.String()
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sync enqueue error")
	}
}
