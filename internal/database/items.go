package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lendit/internal/models"
)

const itemColumns = `id, owner_id, name, description, available, request_id, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, name, description, available, request_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		item.OwnerID,
		item.Name,
		item.Description,
		item.Available,
		item.RequestID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, item.Name, item.Description, item.Available, time.Now().UTC(), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (db *DB) ListItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by owner: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *DB) CountItemsByOwner(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items by owner: %w", err)
	}
	return count, nil
}

// SearchItems finds available items whose name or description contains the
// text, case-insensitive. Blank text matches nothing.
func (db *DB) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
              WHERE available = 1 AND (name LIKE ? OR description LIKE ?)
              ORDER BY id`
	pattern := "%" + text + "%"
	rows, err := db.QueryContext(ctx, query, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *DB) ListItemsByRequest(ctx context.Context, requestID int64) ([]*models.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by request: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.Available, &item.RequestID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}
