package database

import (
	"context"
	"os"
	"testing"
	"time"

	"lendit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

// seedUserItem creates an owner, a booker and one available item; returns
// (ownerID, bookerID, itemID).
func seedUserItem(t *testing.T, db *DB) (int64, int64, int64) {
	ctx := context.Background()

	owner := &models.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.CreateUser(ctx, owner))

	booker := &models.User{Name: "Booker", Email: "booker@example.com"}
	require.NoError(t, db.CreateUser(ctx, booker))

	item := &models.Item{OwnerID: owner.ID, Name: "Drill", Description: "Cordless drill", Available: true}
	require.NoError(t, db.CreateItem(ctx, item))

	return owner.ID, booker.ID, item.ID
}

func makeBooking(t *testing.T, db *DB, itemID, bookerID, ownerID int64, start, end time.Time) *models.Booking {
	booking := &models.Booking{
		ItemID:    itemID,
		BookerID:  bookerID,
		OwnerID:   ownerID,
		StartTime: start,
		EndTime:   end,
	}
	require.NoError(t, db.CreateBooking(context.Background(), booking))
	return booking
}

func TestCreateBooking(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ownerID, bookerID, itemID := seedUserItem(t, db)

	start := time.Now().Add(24 * time.Hour)
	booking := makeBooking(t, db, itemID, bookerID, ownerID, start, start.Add(2*time.Hour))

	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusWaiting, booking.Status)
	assert.Equal(t, int64(1), booking.Version)
	assert.False(t, booking.CreatedAt.IsZero())
}

func TestCreateBooking_ConflictWithApproved(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)

	start := time.Now().Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)

	first := makeBooking(t, db, itemID, bookerID, ownerID, start, end)
	_, err := db.DecideBooking(ctx, first.ID, first.Version, models.StatusApproved)
	require.NoError(t, err)

	// Overlapping request against an approved booking is rejected.
	overlap := &models.Booking{
		ItemID:    itemID,
		BookerID:  bookerID,
		OwnerID:   ownerID,
		StartTime: start.Add(time.Hour),
		EndTime:   end.Add(time.Hour),
	}
	err = db.CreateBooking(ctx, overlap)
	assert.ErrorIs(t, err, ErrTimeConflict)

	// Touching end-to-start is allowed: intervals are half-open.
	adjacent := &models.Booking{
		ItemID:    itemID,
		BookerID:  bookerID,
		OwnerID:   ownerID,
		StartTime: end,
		EndTime:   end.Add(2 * time.Hour),
	}
	assert.NoError(t, db.CreateBooking(ctx, adjacent))
}

func TestCreateBooking_WaitingDoesNotReserve(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ownerID, bookerID, itemID := seedUserItem(t, db)

	start := time.Now().Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)

	makeBooking(t, db, itemID, bookerID, ownerID, start, end)
	// Same window again: the first booking is still waiting, so no conflict.
	second := makeBooking(t, db, itemID, bookerID, ownerID, start, end)
	assert.NotZero(t, second.ID)
}

func TestDecideBooking(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)

	start := time.Now().Add(24 * time.Hour)
	booking := makeBooking(t, db, itemID, bookerID, ownerID, start, start.Add(time.Hour))

	updated, err := db.DecideBooking(ctx, booking.ID, booking.Version, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, booking.Version+1, updated.Version)

	// Terminal states do not transition again.
	_, err = db.DecideBooking(ctx, booking.ID, updated.Version, models.StatusRejected)
	assert.ErrorIs(t, err, ErrNotWaiting)
}

func TestDecideBooking_StaleVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)

	start := time.Now().Add(24 * time.Hour)
	booking := makeBooking(t, db, itemID, bookerID, ownerID, start, start.Add(time.Hour))

	_, err := db.DecideBooking(ctx, booking.ID, booking.Version+41, models.StatusRejected)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestDecideBooking_ApprovalRecheck(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)

	start := time.Now().Add(24 * time.Hour)
	end := start.Add(3 * time.Hour)

	first := makeBooking(t, db, itemID, bookerID, ownerID, start, end)
	second := makeBooking(t, db, itemID, bookerID, ownerID, start.Add(time.Hour), end.Add(time.Hour))

	_, err := db.DecideBooking(ctx, first.ID, first.Version, models.StatusApproved)
	require.NoError(t, err)

	// The second waiting booking overlaps the now-approved first one.
	_, err = db.DecideBooking(ctx, second.ID, second.Version, models.StatusApproved)
	assert.ErrorIs(t, err, ErrTimeConflict)

	// Rejecting it is still fine.
	rejected, err := db.DecideBooking(ctx, second.ID, second.Version, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
}

func TestDecideBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.DecideBooking(context.Background(), 999, 1, models.StatusApproved)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetBookingForUser_AccessControl(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)

	stranger := &models.User{Name: "Stranger", Email: "stranger@example.com"}
	require.NoError(t, db.CreateUser(ctx, stranger))

	start := time.Now().Add(24 * time.Hour)
	booking := makeBooking(t, db, itemID, bookerID, ownerID, start, start.Add(time.Hour))

	got, err := db.GetBookingForUser(ctx, booking.ID, bookerID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	got, err = db.GetBookingForUser(ctx, booking.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	// A third party cannot tell the booking exists at all.
	_, err = db.GetBookingForUser(ctx, booking.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListBookings_Filters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)
	now := time.Now()

	// Past: approved, ended yesterday.
	past := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	_, err := db.DecideBooking(ctx, past.ID, past.Version, models.StatusApproved)
	require.NoError(t, err)

	// Current: approved, started an hour ago, ends in an hour.
	current := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(-time.Hour), now.Add(time.Hour))
	_, err = db.DecideBooking(ctx, current.ID, current.Version, models.StatusApproved)
	require.NoError(t, err)

	// Future: waiting, starts tomorrow.
	future := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(24*time.Hour), now.Add(26*time.Hour))

	// Rejected, also in the future.
	rej := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(48*time.Hour), now.Add(50*time.Hour))
	_, err = db.DecideBooking(ctx, rej.ID, rej.Version, models.StatusRejected)
	require.NoError(t, err)

	all, err := db.ListBookingsByBooker(ctx, bookerID, models.FilterAll, now)
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Newest start first.
	assert.Equal(t, rej.ID, all[0].ID)
	assert.Equal(t, past.ID, all[3].ID)

	got, err := db.ListBookingsByBooker(ctx, bookerID, models.FilterPast, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, past.ID, got[0].ID)

	got, err = db.ListBookingsByBooker(ctx, bookerID, models.FilterCurrent, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, current.ID, got[0].ID)

	// FUTURE covers waiting and rejected start-after-now bookings alike.
	got, err = db.ListBookingsByBooker(ctx, bookerID, models.FilterFuture, now)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = db.ListBookingsByBooker(ctx, bookerID, models.FilterWaiting, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, future.ID, got[0].ID)

	got, err = db.ListBookingsByBooker(ctx, bookerID, models.FilterRejected, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rej.ID, got[0].ID)

	// The owner-side view of the same calendar.
	got, err = db.ListBookingsByOwner(ctx, ownerID, models.FilterAll, now)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = db.ListBookingsByOwner(ctx, bookerID, models.FilterAll, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHasCompletedRental(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)
	now := time.Now()

	// Approved but still running: not completed.
	running := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(-time.Hour), now.Add(time.Hour))
	_, err := db.DecideBooking(ctx, running.ID, running.Version, models.StatusApproved)
	require.NoError(t, err)

	ok, err := db.HasCompletedRental(ctx, bookerID, itemID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	done := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	_, err = db.DecideBooking(ctx, done.ID, done.Version, models.StatusApproved)
	require.NoError(t, err)

	ok, err = db.HasCompletedRental(ctx, bookerID, itemID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.HasCompletedRental(ctx, ownerID, itemID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastAndNextBookingForItem(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)
	now := time.Now()

	last, err := db.LastBookingForItem(ctx, itemID, now)
	require.NoError(t, err)
	assert.Nil(t, last)

	next, err := db.NextBookingForItem(ctx, itemID, now)
	require.NoError(t, err)
	assert.Nil(t, next)

	earlier := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(-72*time.Hour), now.Add(-70*time.Hour))
	_, err = db.DecideBooking(ctx, earlier.ID, earlier.Version, models.StatusApproved)
	require.NoError(t, err)

	recent := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(-2*time.Hour), now.Add(-time.Hour))
	_, err = db.DecideBooking(ctx, recent.ID, recent.Version, models.StatusApproved)
	require.NoError(t, err)

	upcoming := makeBooking(t, db, itemID, bookerID, ownerID, now.Add(24*time.Hour), now.Add(26*time.Hour))
	_, err = db.DecideBooking(ctx, upcoming.ID, upcoming.Version, models.StatusApproved)
	require.NoError(t, err)

	// Waiting bookings never show up in the windows.
	makeBooking(t, db, itemID, bookerID, ownerID, now.Add(2*time.Hour), now.Add(4*time.Hour))

	last, err = db.LastBookingForItem(ctx, itemID, now)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, recent.ID, last.ID)

	next, err = db.NextBookingForItem(ctx, itemID, now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, upcoming.ID, next.ID)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ownerID, bookerID, itemID := seedUserItem(t, db)
	base := time.Now().Add(24 * time.Hour)

	inside := makeBooking(t, db, itemID, bookerID, ownerID, base, base.Add(2*time.Hour))
	makeBooking(t, db, itemID, bookerID, ownerID, base.Add(100*time.Hour), base.Add(102*time.Hour))

	got, err := db.GetBookingsByDateRange(ctx, base.Add(-time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)
}
