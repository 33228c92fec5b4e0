package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shop-service/internal/cart"
	"shop-service/internal/items"
	"shop-service/pkg/logkey"
)

var (
	ErrEmptyCart         = errors.New("cart has no order-lines")
	ErrInsufficientStock = errors.New("insufficient stock for checkout")
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlreadyCancelled  = errors.New("order is already cancelled")
)

// ItemLedger is the slice of the item store the engine needs: current item
// details plus the atomic reserve/release stock operations.
type ItemLedger interface {
	GetItemByID(ctx context.Context, itemId string) (items.Item, error)
	Reserve(ctx context.Context, itemId string, quantity int) error
	Release(ctx context.Context, itemId string, quantity int) error
}

// CartStore reads a user's pending order-lines.
type CartStore interface {
	Lines(ctx context.Context, userId string) ([]cart.OrderLine, error)
}

// OrderStore persists orders. CreateAndClearCart must write the order and
// empty the user's cart as one transaction.
type OrderStore interface {
	CreateAndClearCart(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, userId, orderId string) (Order, error)
	MarkRestocked(ctx context.Context, orderId, itemId string) error
	SetStatus(ctx context.Context, orderId string, status Status) error
}

// Engine converts carts into orders and reverses those conversions.
type Engine struct {
	Items  ItemLedger
	Carts  CartStore
	Orders OrderStore
}

func NewEngine(ledger ItemLedger, carts CartStore, store OrderStore) (*Engine, error) {
	if ledger == nil || carts == nil || store == nil {
		return nil, fmt.Errorf("engine dependencies cannot be nil")
	}
	return &Engine{Items: ledger, Carts: carts, Orders: store}, nil
}

// Verify checks out the user's cart: every line's quantity is reserved
// against the ledger at the item's current price, the resulting order is
// persisted with status bought and the cart is cleared. If any line cannot
// be reserved, every reservation already taken for this checkout is
// released again, so a failed checkout leaves both stock and cart exactly
// as they were.
//
// The first line's id becomes the order id. Clients rely on being able to
// cancel with an id they saw on a cart line, so a fresh id would break them.
func (e *Engine) Verify(ctx context.Context, userId string) (string, error) {
	lines, err := e.Carts.Lines(ctx, userId)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	order := Order{
		ID:     lines[0].ID,
		UserID: userId,
		Status: StatusBought,
	}

	reserved := make([]cart.OrderLine, 0, len(lines))
	rollback := func() {
		for _, line := range reserved {
			if err := e.Items.Release(ctx, line.ItemID, line.Quantity); err != nil {
				slog.Error("stock release failed while rolling back checkout",
					slog.String("ItemID", line.ItemID),
					slog.Int("Quantity", line.Quantity),
					slog.String(logkey.ERROR, err.Error()))
			}
		}
	}

	for _, line := range lines {
		item, err := e.Items.GetItemByID(ctx, line.ItemID)
		if err != nil {
			rollback()
			return "", fmt.Errorf("looking up item %s: %w", line.ItemID, err)
		}

		if err := e.Items.Reserve(ctx, line.ItemID, line.Quantity); err != nil {
			rollback()
			if errors.Is(err, items.ErrOutOfStock) {
				return "", fmt.Errorf("item %s: %w", line.ItemID, ErrInsufficientStock)
			}
			return "", fmt.Errorf("reserving item %s: %w", line.ItemID, err)
		}
		reserved = append(reserved, line)

		lineTotal := item.PriceCents * int64(line.Quantity)
		order.Items = append(order.Items, OrderItem{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			TotalCents: lineTotal,
		})
		order.TotalCents += lineTotal
	}

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := e.Orders.CreateAndClearCart(ctx, order); err != nil {
		rollback()
		return "", fmt.Errorf("persisting order: %w", err)
	}

	return order.ID, nil
}

// Cancel reverses a bought order: each order-item's quantity goes back to
// the ledger, then the status flips to cancelled. Every restocked item is
// marked before moving on, and the status only flips once all items are
// restocked; if a release fails partway the order stays bought and a retry
// restocks exactly the remainder.
func (e *Engine) Cancel(ctx context.Context, userId, orderId string) error {
	order, err := e.Orders.GetOrder(ctx, userId, orderId)
	if err != nil {
		return err
	}
	if order.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	for _, item := range order.Items {
		if item.Restocked {
			continue
		}
		if err := e.Items.Release(ctx, item.ItemID, item.Quantity); err != nil {
			return fmt.Errorf("restoring stock for item %s: %w", item.ItemID, err)
		}
		if err := e.Orders.MarkRestocked(ctx, orderId, item.ItemID); err != nil {
			return fmt.Errorf("recording restock for item %s: %w", item.ItemID, err)
		}
	}

	if err := e.Orders.SetStatus(ctx, orderId, StatusCancelled); err != nil {
		return fmt.Errorf("marking order cancelled: %w", err)
	}
	return nil
}
