package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lendit/internal/models"
)

const bookingColumns = `id, item_id, booker_id, owner_id, start_time, end_time, status, created_at, updated_at, version`

// overlapCondition matches approved bookings of an item that intersect the
// half-open interval [?, ?). Arguments: end, start.
const overlapCondition = `item_id = ? AND status = 'approved' AND start_time < ? AND end_time > ?`

// CreateBooking inserts a new waiting booking after verifying, inside one
// transaction, that the interval does not overlap any approved booking of the
// same item. Waiting and rejected bookings do not reserve the calendar.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var overlapping int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+overlapCondition,
		booking.ItemID, booking.EndTime.UTC(), booking.StartTime.UTC()).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return ErrTimeConflict
	}

	query := `INSERT INTO bookings (item_id, booker_id, owner_id, start_time, end_time, status, created_at, updated_at, version)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		booking.OwnerID,
		booking.StartTime.UTC(),
		booking.EndTime.UTC(),
		models.StatusWaiting,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.Status = models.StatusWaiting
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetBookingForUser returns the booking only when userID is its booker or its
// owner. Any other caller gets ErrBookingNotFound, so existence is not leaked.
func (db *DB) GetBookingForUser(ctx context.Context, id, userID int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND (booker_id = ? OR owner_id = ?)`,
		id, userID, userID)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking for user: %w", err)
	}
	return booking, nil
}

// DecideBooking moves a waiting booking to a terminal status inside one
// transaction. On approval the non-overlap invariant is re-checked against
// currently approved bookings, so two racing approvals of overlapping waiting
// requests cannot both land: the loser gets ErrTimeConflict or, if the row
// version moved underneath it, ErrConcurrentModification.
func (db *DB) DecideBooking(ctx context.Context, id, fromVersion int64, to models.BookingStatus) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking in tx: %w", err)
	}

	if booking.Status != models.StatusWaiting {
		return nil, ErrNotWaiting
	}

	if to == models.StatusApproved {
		var overlapping int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+overlapCondition+` AND id != ?`,
			booking.ItemID, booking.EndTime.UTC(), booking.StartTime.UTC(), booking.ID).Scan(&overlapping)
		if err != nil {
			return nil, fmt.Errorf("failed to re-check overlap in tx: %w", err)
		}
		if overlapping > 0 {
			return nil, ErrTimeConflict
		}
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		to, now, id, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit decision: %w", err)
	}

	booking.Status = to
	booking.UpdatedAt = now
	booking.Version = fromVersion + 1
	return booking, nil
}

// filterClause translates a list filter into a WHERE fragment and arguments.
// CURRENT and PAST look at approved bookings only; FUTURE covers any status.
func filterClause(filter models.ListFilter, now time.Time) (string, []interface{}) {
	now = now.UTC()
	switch filter {
	case models.FilterCurrent:
		return ` AND status = 'approved' AND start_time <= ? AND end_time > ?`, []interface{}{now, now}
	case models.FilterPast:
		return ` AND status = 'approved' AND end_time <= ?`, []interface{}{now}
	case models.FilterFuture:
		return ` AND start_time > ?`, []interface{}{now}
	case models.FilterWaiting:
		return ` AND status = 'waiting'`, nil
	case models.FilterRejected:
		return ` AND status = 'rejected'`, nil
	default:
		return ``, nil
	}
}

func (db *DB) ListBookingsByBooker(ctx context.Context, bookerID int64, filter models.ListFilter, now time.Time) ([]*models.Booking, error) {
	clause, args := filterClause(filter, now)
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booker_id = ?` + clause + ` ORDER BY start_time DESC`
	return db.queryBookings(ctx, query, append([]interface{}{bookerID}, args...)...)
}

func (db *DB) ListBookingsByOwner(ctx context.Context, ownerID int64, filter models.ListFilter, now time.Time) ([]*models.Booking, error) {
	clause, args := filterClause(filter, now)
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE owner_id = ?` + clause + ` ORDER BY start_time DESC`
	return db.queryBookings(ctx, query, append([]interface{}{ownerID}, args...)...)
}

// HasCompletedRental reports whether the user has an approved booking of the
// item whose interval has fully elapsed. This is the only question the review
// collaborator may ask.
func (db *DB) HasCompletedRental(ctx context.Context, userID, itemID int64, now time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE booker_id = ? AND item_id = ? AND status = 'approved' AND end_time <= ?`,
		userID, itemID, now.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check completed rental: %w", err)
	}
	return count > 0, nil
}

// LastBookingForItem returns the approved booking with the latest start before
// now, or nil when the item was never rented.
func (db *DB) LastBookingForItem(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE item_id = ? AND status = 'approved' AND start_time < ?
         ORDER BY start_time DESC LIMIT 1`,
		itemID, now.UTC())
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last booking: %w", err)
	}
	return booking, nil
}

// NextBookingForItem returns the approved booking with the earliest start
// after now, or nil.
func (db *DB) NextBookingForItem(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE item_id = ? AND status = 'approved' AND start_time > ?
         ORDER BY start_time ASC LIMIT 1`,
		itemID, now.UTC())
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE start_time < ? AND end_time > ? ORDER BY start_time ASC`
	return db.queryBookings(ctx, query, end.UTC(), start.UTC())
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var status string
	err := row.Scan(
		&b.ID, &b.ItemID, &b.BookerID, &b.OwnerID, &b.StartTime, &b.EndTime,
		&status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	return b, nil
}
