package orders

import "time"

type Status string

const (
	StatusBought    Status = "bought"
	StatusCancelled Status = "cancelled"
)

// Order is the immutable record created at checkout. Its id is the first
// order-line's id from the cart it was checked out from; the only field
// that ever changes afterwards is Status, and only bought -> cancelled.
type Order struct {
	ID         string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Status     Status      `json:"status"`
	TotalCents int64       `json:"total_cents"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem is one (item, quantity, line total) entry within an order.
// Restocked tracks cancellation progress so a retried cancellation never
// returns the same quantity to stock twice.
type OrderItem struct {
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"total_cents"` // Unit price x quantity at checkout time
	Restocked  bool   `json:"-"`
}
