package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

// CreateAndClearCart persists the order with its items and empties the
// owner's cart in a single transaction, so an order can never exist next
// to the cart lines it was built from.
func (c *Conf) CreateAndClearCart(ctx context.Context, order Order) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		queryInsertOrder := `
			INSERT INTO orders (id, user_id, status, total_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, queryInsertOrder, order.ID, order.UserID,
			order.Status, order.TotalCents, order.CreatedAt, order.UpdatedAt); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		queryInsertItem := `
			INSERT INTO order_items (order_id, item_id, quantity, total_cents, restocked, position)
			VALUES ($1, $2, $3, $4, FALSE, $5)
		`
		for i, item := range order.Items {
			if _, err := tx.ExecContext(ctx, queryInsertItem, order.ID, item.ItemID,
				item.Quantity, item.TotalCents, i); err != nil {
				return fmt.Errorf("inserting order item %s: %w", item.ItemID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_owner = $1`, order.UserID); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}
		return nil
	})
}

// GetOrder loads an order with its items. Orders belong to their buyer: a
// lookup with someone else's user id reports not found rather than leaking
// the order's existence.
func (c *Conf) GetOrder(ctx context.Context, userId, orderId string) (Order, error) {
	queryOrder := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`
	var order Order
	err := c.db.QueryRowContext(ctx, queryOrder, orderId, userId).Scan(&order.ID,
		&order.UserID, &order.Status, &order.TotalCents, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("querying order: %w", err)
	}

	queryItems := `
		SELECT item_id, quantity, total_cents, restocked
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`
	rows, err := c.db.QueryContext(ctx, queryItems, orderId)
	if err != nil {
		return Order{}, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ItemID, &item.Quantity, &item.TotalCents, &item.Restocked); err != nil {
			return Order{}, fmt.Errorf("scanning order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("iterating order items: %w", err)
	}

	return order, nil
}

// MarkRestocked records that an order-item's quantity has been returned to
// stock during cancellation.
func (c *Conf) MarkRestocked(ctx context.Context, orderId, itemId string) error {
	query := `
		UPDATE order_items
		SET restocked = TRUE
		WHERE order_id = $1 AND item_id = $2
	`
	if _, err := c.db.ExecContext(ctx, query, orderId, itemId); err != nil {
		return fmt.Errorf("marking order item restocked: %w", err)
	}
	return nil
}

// SetStatus updates an order's status.
func (c *Conf) SetStatus(ctx context.Context, orderId string, status Status) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := c.db.ExecContext(ctx, query, orderId, status)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListOrders returns the user's orders, newest first, as an audit trail.
func (c *Conf) ListOrders(ctx context.Context, userId string) ([]Order, error) {
	query := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status,
			&order.TotalCents, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return out, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
