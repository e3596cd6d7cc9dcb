package database

import (
	"context"
	"fmt"
	"time"

	"lendit/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `INSERT INTO comments (item_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, comment.ItemID, comment.AuthorID, comment.Text, now)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	comment.CreatedAt = now
	return nil
}

func (db *DB) ListCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error) {
	query := `SELECT id, item_id, author_id, text, created_at FROM comments WHERE item_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
