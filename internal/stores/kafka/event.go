package kafka

import "time"

const (
	TopicAccountCreated = `shop-service.account-created`
	TopicOrderPlaced    = `shop-service.order-placed`
	TopicOrderCancelled = `shop-service.order-cancelled`
)

// Representation of the events we publish to kafka.

type AccountCreatedEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // Timestamp of creation
}

type OrderPlacedEvent struct {
	OrderId    string           `json:"order_id"`
	UserId     string           `json:"user_id"`
	TotalCents int64            `json:"total_cents"`
	Items      []OrderEventItem `json:"items"`
	CreatedAt  time.Time        `json:"created_at"`
}

type OrderCancelledEvent struct {
	OrderId     string    `json:"order_id"`
	UserId      string    `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type OrderEventItem struct {
	ItemId   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}
