package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("order-line not found in cart")
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

// GetOrCreateCart returns the user's cart, creating an empty one on first
// access. The primary key on owner guarantees at most one cart per user.
func (c *Conf) GetOrCreateCart(ctx context.Context, userId string) (Cart, error) {
	query := `
		INSERT INTO carts (owner)
		VALUES ($1)
		ON CONFLICT (owner) DO NOTHING
	`
	if _, err := c.db.ExecContext(ctx, query, userId); err != nil {
		return Cart{}, fmt.Errorf("creating cart: %w", err)
	}
	return c.loadCart(ctx, userId)
}

// GetCart returns the user's cart or ErrCartNotFound if none was ever
// created.
func (c *Conf) GetCart(ctx context.Context, userId string) (Cart, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE owner = $1)`, userId).Scan(&exists)
	if err != nil {
		return Cart{}, fmt.Errorf("checking cart existence: %w", err)
	}
	if !exists {
		return Cart{}, ErrCartNotFound
	}
	return c.loadCart(ctx, userId)
}

// Lines returns the cart's order-lines in insertion order.
func (c *Conf) Lines(ctx context.Context, userId string) ([]OrderLine, error) {
	cart, err := c.GetCart(ctx, userId)
	if err != nil {
		return nil, err
	}
	return cart.Lines, nil
}

// SaveLines transactionally replaces the cart's line set with the given
// cart's lines. The cart row itself must already exist.
func (c *Conf) SaveLines(ctx context.Context, cart Cart) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_owner = $1`, cart.Owner); err != nil {
			return fmt.Errorf("clearing previous lines: %w", err)
		}

		queryInsertLine := `
			INSERT INTO cart_lines (id, cart_owner, item_id, quantity, position)
			VALUES ($1, $2, $3, $4, $5)
		`
		for i, line := range cart.Lines {
			if _, err := tx.ExecContext(ctx, queryInsertLine, line.ID, cart.Owner,
				line.ItemID, line.Quantity, i); err != nil {
				return fmt.Errorf("inserting line for item %s: %w", line.ItemID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE owner = $1`, cart.Owner); err != nil {
			return fmt.Errorf("touching cart: %w", err)
		}
		return nil
	})
}

// FormattedCart joins the cart's lines with current item names and prices
// and the buyer's shipping info, and computes the total bill. Cart rows
// store item ids only; the join happens here, at read time.
func (c *Conf) FormattedCart(ctx context.Context, userId string) (FormattedCart, error) {
	cart, err := c.GetCart(ctx, userId)
	if err != nil {
		return FormattedCart{}, err
	}

	var out FormattedCart

	queryBuyer := `SELECT first_name, last_name, address FROM users WHERE id = $1`
	err = c.db.QueryRowContext(ctx, queryBuyer, userId).Scan(&out.User.FirstName,
		&out.User.LastName, &out.User.Address)
	if err != nil {
		return FormattedCart{}, fmt.Errorf("querying buyer info: %w", err)
	}

	queryLines := `
		SELECT cl.id, i.name, i.price_cents, cl.quantity
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.cart_owner = $1
		ORDER BY cl.position
	`
	rows, err := c.db.QueryContext(ctx, queryLines, cart.Owner)
	if err != nil {
		return FormattedCart{}, fmt.Errorf("querying cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line FormattedLine
		if err := rows.Scan(&line.OrderID, &line.ItemName, &line.ItemPriceCents, &line.Quantity); err != nil {
			return FormattedCart{}, fmt.Errorf("scanning cart line: %w", err)
		}
		out.Items = append(out.Items, line)
		out.TotalBillCents += line.ItemPriceCents * int64(line.Quantity)
	}
	if err := rows.Err(); err != nil {
		return FormattedCart{}, fmt.Errorf("iterating cart lines: %w", err)
	}

	return out, nil
}

func (c *Conf) loadCart(ctx context.Context, userId string) (Cart, error) {
	query := `
		SELECT id, item_id, quantity
		FROM cart_lines
		WHERE cart_owner = $1
		ORDER BY position
	`
	rows, err := c.db.QueryContext(ctx, query, userId)
	if err != nil {
		return Cart{}, fmt.Errorf("querying cart lines: %w", err)
	}
	defer rows.Close()

	cart := Cart{Owner: userId}
	for rows.Next() {
		var line OrderLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Quantity); err != nil {
			return Cart{}, fmt.Errorf("scanning cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, fmt.Errorf("iterating cart lines: %w", err)
	}
	return cart, nil
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
