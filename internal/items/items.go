package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrOutOfStock   = errors.New("item is out of stock")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// Reserve atomically decrements the item's stock by quantity. The guard in
// the UPDATE keeps stock from ever going negative: two concurrent
// reservations whose combined quantity exceeds availability can never both
// succeed. This must stay a single conditional statement, not a
// read-then-write pair.
func (c *Conf) Reserve(ctx context.Context, itemId string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	query := `
		UPDATE items
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`
	result, err := c.db.ExecContext(ctx, query, itemId, quantity)
	if err != nil {
		return fmt.Errorf("reserving stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	// The guarded update matched nothing; find out whether the item is
	// missing or just short on stock.
	var exists bool
	err = c.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemId).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking item existence: %w", err)
	}
	if !exists {
		return ErrItemNotFound
	}
	return ErrOutOfStock
}

// Release atomically increments the item's stock by quantity. Callers are
// responsible for not releasing the same reservation twice.
func (c *Conf) Release(ctx context.Context, itemId string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	query := `
		UPDATE items
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := c.db.ExecContext(ctx, query, itemId, quantity)
	if err != nil {
		return fmt.Errorf("releasing stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// GetItemByID fetches a single item.
func (c *Conf) GetItemByID(ctx context.Context, itemId string) (Item, error) {
	query := `
		SELECT id, name, description, price_cents, stock, created_at, updated_at
		FROM items
		WHERE id = $1
	`
	var item Item
	err := c.db.QueryRowContext(ctx, query, itemId).Scan(&item.ID, &item.Name,
		&item.Description, &item.PriceCents, &item.Stock, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("querying item: %w", err)
	}
	return item, nil
}

// ListItems returns the catalog ordered by name.
func (c *Conf) ListItems(ctx context.Context) ([]Item, error) {
	query := `
		SELECT id, name, description, price_cents, stock, created_at, updated_at
		FROM items
		ORDER BY name
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Description,
			&item.PriceCents, &item.Stock, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return out, nil
}

// InsertItem creates a new catalog item.
func (c *Conf) InsertItem(ctx context.Context, newItem NewItem) (Item, error) {
	now := time.Now().UTC()
	item := Item{
		ID:          uuid.NewString(),
		Name:        newItem.Name,
		Description: newItem.Description,
		PriceCents:  newItem.PriceCents,
		Stock:       newItem.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO items (id, name, description, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := c.db.ExecContext(ctx, query, item.ID, item.Name, item.Description,
		item.PriceCents, item.Stock, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("inserting item: %w", err)
	}
	return item, nil
}

// UpdateItemInDB edits name, description and price. Stock is deliberately
// left alone here; it belongs to Reserve/Release.
func (c *Conf) UpdateItemInDB(ctx context.Context, itemId string, update UpdateItem) (Item, error) {
	query := `
		UPDATE items
		SET name = $2, description = $3, price_cents = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, price_cents, stock, created_at, updated_at
	`
	var item Item
	err := c.db.QueryRowContext(ctx, query, itemId, update.Name, update.Description,
		update.PriceCents).Scan(&item.ID, &item.Name, &item.Description,
		&item.PriceCents, &item.Stock, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("updating item: %w", err)
	}
	return item, nil
}

// DeleteItemFromDB removes an item from the catalog.
func (c *Conf) DeleteItemFromDB(ctx context.Context, itemId string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemId)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}
