package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

// CreateItem creates a new item.
func CreateItem(ctx context.Context, q db.DBTX, name string, quantity int, now time.Time) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO items (name, quantity, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, quantity, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, q db.DBTX, id int64) (*model.Item, error) {
	item := &model.Item{}
	var imageMime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, name, quantity, image_mime, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.Quantity, &imageMime, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.ImageMime = imageMime.String
	return item, nil
}

// ListItemsWithAvailability returns every item with its available count.
// Rows are ordered by id; callers apply display ordering.
func ListItemsWithAvailability(ctx context.Context, q db.DBTX) ([]model.ItemAvailability, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT i.id, i.name, i.quantity, i.image_mime,
		        i.quantity - (
		            SELECT COUNT(*) FROM borrow_requests r
		            WHERE r.item_id = i.id AND r.status = ? AND r.returned_at IS NULL
		        ) AS available
		 FROM items i
		 ORDER BY i.id`, model.StatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.ItemAvailability
	for rows.Next() {
		var item model.ItemAvailability
		var imageMime sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &imageMime, &item.Available); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.ImageMime = imageMime.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem overwrites an item's name and quantity.
func UpdateItem(ctx context.Context, q db.DBTX, id int64, name string, quantity int, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET name = ?, quantity = ?, updated_at = ? WHERE id = ?`,
		name, quantity, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem permanently removes an item. Its borrow requests are kept.
func DeleteItem(ctx context.Context, q db.DBTX, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, q db.DBTX, id int64, image []byte, mime string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, now, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, q db.DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// CountApprovedUnreturned returns how many units of an item are currently
// borrowed.
func CountApprovedUnreturned(ctx context.Context, q db.DBTX, itemID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrow_requests
		 WHERE item_id = ? AND status = ? AND returned_at IS NULL`,
		itemID, model.StatusApproved,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting borrowed units: %w", err)
	}
	return count, nil
}
