package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lendit/internal/models"
)

const requestColumns = `id, requestor_id, description, created_at`

func (db *DB) CreateItemRequest(ctx context.Context, request *models.ItemRequest) error {
	query := `INSERT INTO item_requests (requestor_id, description, created_at) VALUES (?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, request.RequestorID, request.Description, now)
	if err != nil {
		return fmt.Errorf("failed to create item request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	request.ID = id
	request.CreatedAt = now
	return nil
}

func (db *DB) GetItemRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error) {
	row := db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM item_requests WHERE id = ?`, id)
	request, err := scanItemRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item request: %w", err)
	}
	return request, nil
}

// ListRequestsByRequestor returns a user's own requests, newest first.
func (db *DB) ListRequestsByRequestor(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests WHERE requestor_id = ? ORDER BY created_at DESC`
	return db.listItemRequests(ctx, query, requestorID)
}

// ListOtherRequests returns requests posted by everyone except the user,
// newest first. This is the browse view for owners looking for demand.
func (db *DB) ListOtherRequests(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests WHERE requestor_id != ? ORDER BY created_at DESC`
	return db.listItemRequests(ctx, query, requestorID)
}

func (db *DB) listItemRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ItemRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list item requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ItemRequest
	for rows.Next() {
		request, err := scanItemRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanItemRequest(row rowScanner) (*models.ItemRequest, error) {
	request := &models.ItemRequest{}
	err := row.Scan(&request.ID, &request.RequestorID, &request.Description, &request.CreatedAt)
	if err != nil {
		return nil, err
	}
	return request, nil
}
