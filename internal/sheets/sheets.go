package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"lendit/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrRowNotFound reports that no sheet row carries the requested booking id.
var ErrRowNotFound = errors.New("booking row not found")

const bookingsSheet = "Bookings"

// Service mirrors bookings into a Google spreadsheet. The spreadsheet is a
// read-only report surface for owners; the database stays authoritative.
type Service struct {
	service       *sheets.Service
	spreadsheetID string

	cacheMu  sync.RWMutex
	rowCache map[int64]int
}

func NewService(ctx context.Context, credentialsFile, spreadsheetID string) (*Service, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	s := &Service{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[int64]int),
	}

	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.WarmUpCache(warmCtx)
	}()

	return s, nil
}

// TestConnection reads one cell to verify credentials and sharing.
func (s *Service) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the account the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.ItemID,
		b.BookerID,
		b.OwnerID,
		b.StartTime.Format("2006-01-02 15:04:05"),
		b.EndTime.Format("2006-01-02 15:04:05"),
		string(b.Status),
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// UpsertBooking updates the booking's row or appends a new one.
func (s *Service) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.appendBooking(ctx, booking)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:I%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *Service) appendBooking(ctx context.Context, booking *models.Booking) error {
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

// UpdateBookingStatus rewrites the status and updated-at cells for a booking.
func (s *Service) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s!G%d:G%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	updatedRange := fmt.Sprintf("%s!I%d:I%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// DeleteBookingRow clears the row for bookingID.
func (s *Service) DeleteBookingRow(ctx context.Context, bookingID int64) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:I%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rangeData, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCachedRow(bookingID)
	}
	return err
}

// FindBookingRow returns the 1-based row index for bookingID in column A.
func (s *Service) FindBookingRow(ctx context.Context, bookingID int64) (int, error) {
	if bookingID == 0 {
		return 0, fmt.Errorf("booking id is required")
	}

	if row, ok := s.cachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellID(row[0]) == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, ErrRowNotFound
}

// WarmUpCache populates the row index cache from the ID column.
func (s *Service) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

func cellID(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case string:
		var id int64
		fmt.Sscanf(val, "%d", &id)
		return id
	default:
		return 0
	}
}

func (s *Service) cachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *Service) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *Service) deleteCachedRow(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}
