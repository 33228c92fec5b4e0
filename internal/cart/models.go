package cart

import "github.com/google/uuid"

// OrderLine is a cart-resident (item, quantity) pair. The line id is
// assigned when the item first enters the cart and doubles as the order id
// at checkout, so callers can cancel an order with an id they saw while
// the item was still in the cart.
type OrderLine struct {
	ID       string `json:"order_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Cart is a user's mutable collection of order-lines. There is exactly one
// cart per user; checkout empties it but never deletes it.
type Cart struct {
	Owner string      `json:"owner"`
	Lines []OrderLine `json:"lines"`
}

// AddLine merges the quantity into an existing line for the same item, or
// appends a new line with a fresh order-line id. It returns the line's id.
func (c *Cart) AddLine(itemId string, quantity int) string {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemId {
			c.Lines[i].Quantity += quantity
			return c.Lines[i].ID
		}
	}

	line := OrderLine{
		ID:       uuid.NewString(),
		ItemID:   itemId,
		Quantity: quantity,
	}
	c.Lines = append(c.Lines, line)
	return line.ID
}

// RemoveOneUnit decrements the identified line's quantity by one, dropping
// the line entirely when it reaches zero. It reports whether the line id
// was found.
func (c *Cart) RemoveOneUnit(orderLineId string) bool {
	for i := range c.Lines {
		if c.Lines[i].ID != orderLineId {
			continue
		}
		if c.Lines[i].Quantity > 1 {
			c.Lines[i].Quantity--
		} else {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
		return true
	}
	return false
}

// FormattedCart is the cart view returned to the client: lines joined with
// current item details, the computed total bill and the buyer's shipping
// information.
type FormattedCart struct {
	User           BuyerInfo       `json:"user"`
	Items          []FormattedLine `json:"items"`
	TotalBillCents int64           `json:"total_bill_cents"`
}

type BuyerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
}

type FormattedLine struct {
	OrderID        string `json:"order_id"`
	ItemName       string `json:"item_name"`
	ItemPriceCents int64  `json:"item_price_cents"`
	Quantity       int    `json:"quantity"`
}
