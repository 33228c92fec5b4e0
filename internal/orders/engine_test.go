package orders_test

import (
	"context"
	"sync"
	"testing"

	"shop-service/internal/cart"
	"shop-service/internal/items"
	"shop-service/internal/orders"

	"github.com/stretchr/testify/require"
)

func TestVerifyComputesTotalsAndClearsCart(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 5},
		"item-b": {ID: "item-b", PriceCents: 500, Stock: 5},
	})
	carts := newMemCarts()
	lines := []cart.OrderLine{
		{ID: "line-1", ItemID: "item-a", Quantity: 2},
		{ID: "line-2", ItemID: "item-b", Quantity: 1},
	}
	carts.set("user-1", lines)
	store := newMemOrders(carts)

	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	orderId, err := engine.Verify(context.Background(), "user-1")
	require.NoError(t, err)

	// The first line's id becomes the order id.
	require.Equal(t, "line-1", orderId)

	order := store.orders[orderId]
	require.Equal(t, orders.StatusBought, order.Status)
	require.Equal(t, int64(2*1000+1*500), order.TotalCents)
	require.Len(t, order.Items, 2)
	require.Equal(t, int64(2000), order.Items[0].TotalCents)
	require.Equal(t, int64(500), order.Items[1].TotalCents)

	// Stock drained, cart cleared.
	require.Equal(t, 3, ledger.stock("item-a"))
	require.Equal(t, 4, ledger.stock("item-b"))
	got, err := carts.Lines(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestVerifyEmptyCart(t *testing.T) {
	ledger := newMemLedger(nil)
	carts := newMemCarts()
	carts.set("user-1", nil)
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	_, err = engine.Verify(context.Background(), "user-1")
	require.ErrorIs(t, err, orders.ErrEmptyCart)
}

func TestVerifyInsufficientStockReleasesReservations(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 5},
		"item-b": {ID: "item-b", PriceCents: 500, Stock: 1},
	})
	carts := newMemCarts()
	lines := []cart.OrderLine{
		{ID: "line-1", ItemID: "item-a", Quantity: 2},
		{ID: "line-2", ItemID: "item-b", Quantity: 3},
	}
	carts.set("user-1", lines)
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	_, err = engine.Verify(context.Background(), "user-1")
	require.ErrorIs(t, err, orders.ErrInsufficientStock)

	// The first line was reserved before the failure; the rollback must
	// have put it back, leaving stock and cart exactly as they were.
	require.Equal(t, 5, ledger.stock("item-a"))
	require.Equal(t, 1, ledger.stock("item-b"))
	got, err := carts.Lines(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Empty(t, store.orders)
}

func TestVerifyMissingItemReleasesReservations(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 5},
	})
	carts := newMemCarts()
	lines := []cart.OrderLine{
		{ID: "line-1", ItemID: "item-a", Quantity: 2},
		{ID: "line-2", ItemID: "item-gone", Quantity: 1},
	}
	carts.set("user-1", lines)
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	_, err = engine.Verify(context.Background(), "user-1")
	require.ErrorIs(t, err, items.ErrItemNotFound)
	require.Equal(t, 5, ledger.stock("item-a"))
	require.Empty(t, store.orders)
}

func TestCancelRestoresStockAndFlipsStatus(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 5},
		"item-b": {ID: "item-b", PriceCents: 500, Stock: 5},
	})
	carts := newMemCarts()
	lines := []cart.OrderLine{
		{ID: "line-1", ItemID: "item-a", Quantity: 2},
		{ID: "line-2", ItemID: "item-b", Quantity: 1},
	}
	carts.set("user-1", lines)
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	orderId, err := engine.Verify(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, ledger.stock("item-a"))

	err = engine.Cancel(context.Background(), "user-1", orderId)
	require.NoError(t, err)

	require.Equal(t, 5, ledger.stock("item-a"))
	require.Equal(t, 5, ledger.stock("item-b"))
	require.Equal(t, orders.StatusCancelled, store.orders[orderId].Status)

	// A second cancellation must be rejected and must not restock again.
	err = engine.Cancel(context.Background(), "user-1", orderId)
	require.ErrorIs(t, err, orders.ErrAlreadyCancelled)
	require.Equal(t, 5, ledger.stock("item-a"))
	require.Equal(t, 5, ledger.stock("item-b"))
}

func TestCancelWrongOwner(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 5},
	})
	carts := newMemCarts()
	carts.set("user-1", []cart.OrderLine{{ID: "line-1", ItemID: "item-a", Quantity: 1}})
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	orderId, err := engine.Verify(context.Background(), "user-1")
	require.NoError(t, err)

	err = engine.Cancel(context.Background(), "user-2", orderId)
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
	require.Equal(t, orders.StatusBought, store.orders[orderId].Status)
	require.Equal(t, 4, ledger.stock("item-a"))
}

func TestCancelPartialRestockFailureKeepsOrderBought(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 5},
		"item-b": {ID: "item-b", PriceCents: 500, Stock: 5},
	})
	carts := newMemCarts()
	lines := []cart.OrderLine{
		{ID: "line-1", ItemID: "item-a", Quantity: 2},
		{ID: "line-2", ItemID: "item-b", Quantity: 1},
	}
	carts.set("user-1", lines)
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	orderId, err := engine.Verify(context.Background(), "user-1")
	require.NoError(t, err)

	// First cancellation attempt: item-b's release fails partway through.
	ledger.failRelease("item-b", items.ErrItemNotFound)
	err = engine.Cancel(context.Background(), "user-1", orderId)
	require.ErrorIs(t, err, items.ErrItemNotFound)

	// item-a went back to stock and the order is still bought, so the
	// cancellation can be retried.
	require.Equal(t, 5, ledger.stock("item-a"))
	require.Equal(t, 4, ledger.stock("item-b"))
	require.Equal(t, orders.StatusBought, store.orders[orderId].Status)

	// Retry: only the remainder is restocked, item-a is not doubled.
	ledger.failRelease("item-b", nil)
	err = engine.Cancel(context.Background(), "user-1", orderId)
	require.NoError(t, err)
	require.Equal(t, 5, ledger.stock("item-a"))
	require.Equal(t, 5, ledger.stock("item-b"))
	require.Equal(t, orders.StatusCancelled, store.orders[orderId].Status)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	ledger := newMemLedger(map[string]items.Item{
		"item-a": {ID: "item-a", PriceCents: 1000, Stock: 3},
	})
	carts := newMemCarts()
	carts.set("user-1", []cart.OrderLine{{ID: "line-1", ItemID: "item-a", Quantity: 2}})
	carts.set("user-2", []cart.OrderLine{{ID: "line-2", ItemID: "item-a", Quantity: 2}})
	store := newMemOrders(carts)
	engine, err := orders.NewEngine(ledger, carts, store)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userId := range []string{"user-1", "user-2"} {
		wg.Add(1)
		go func(i int, userId string) {
			defer wg.Done()
			_, errs[i] = engine.Verify(context.Background(), userId)
		}(i, userId)
	}
	wg.Wait()

	// Combined demand exceeds stock, so exactly one checkout can win.
	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, orders.ErrInsufficientStock)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, ledger.stock("item-a"))
	require.GreaterOrEqual(t, ledger.stock("item-a"), 0)
}

// --- in-memory test doubles ---

type memLedger struct {
	mu          sync.Mutex
	items       map[string]items.Item
	releaseErrs map[string]error
}

func newMemLedger(seed map[string]items.Item) *memLedger {
	m := &memLedger{
		items:       map[string]items.Item{},
		releaseErrs: map[string]error{},
	}
	for id, item := range seed {
		m.items[id] = item
	}
	return m
}

func (m *memLedger) GetItemByID(_ context.Context, itemId string) (items.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemId]
	if !ok {
		return items.Item{}, items.ErrItemNotFound
	}
	return item, nil
}

func (m *memLedger) Reserve(_ context.Context, itemId string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemId]
	if !ok {
		return items.ErrItemNotFound
	}
	if item.Stock < quantity {
		return items.ErrOutOfStock
	}
	item.Stock -= quantity
	m.items[itemId] = item
	return nil
}

func (m *memLedger) Release(_ context.Context, itemId string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.releaseErrs[itemId]; err != nil {
		return err
	}
	item, ok := m.items[itemId]
	if !ok {
		return items.ErrItemNotFound
	}
	item.Stock += quantity
	m.items[itemId] = item
	return nil
}

func (m *memLedger) failRelease(itemId string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.releaseErrs, itemId)
		return
	}
	m.releaseErrs[itemId] = err
}

func (m *memLedger) stock(itemId string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[itemId].Stock
}

type memCarts struct {
	mu    sync.Mutex
	lines map[string][]cart.OrderLine
}

func newMemCarts() *memCarts {
	return &memCarts{lines: map[string][]cart.OrderLine{}}
}

func (m *memCarts) set(userId string, lines []cart.OrderLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[userId] = lines
}

func (m *memCarts) Lines(_ context.Context, userId string) ([]cart.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.lines[userId]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	out := make([]cart.OrderLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *memCarts) clear(userId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[userId] = nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]orders.Order
	carts  *memCarts
}

func newMemOrders(carts *memCarts) *memOrders {
	return &memOrders{orders: map[string]orders.Order{}, carts: carts}
}

func (m *memOrders) CreateAndClearCart(_ context.Context, order orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := order
	stored.Items = make([]orders.OrderItem, len(order.Items))
	copy(stored.Items, order.Items)
	m.orders[order.ID] = stored
	m.carts.clear(order.UserID)
	return nil
}

func (m *memOrders) GetOrder(_ context.Context, userId, orderId string) (orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderId]
	if !ok || order.UserID != userId {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	out := order
	out.Items = make([]orders.OrderItem, len(order.Items))
	copy(out.Items, order.Items)
	return out, nil
}

func (m *memOrders) MarkRestocked(_ context.Context, orderId, itemId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderId]
	if !ok {
		return orders.ErrOrderNotFound
	}
	for i := range order.Items {
		if order.Items[i].ItemID == itemId {
			order.Items[i].Restocked = true
		}
	}
	m.orders[orderId] = order
	return nil
}

func (m *memOrders) SetStatus(_ context.Context, orderId string, status orders.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderId]
	if !ok {
		return orders.ErrOrderNotFound
	}
	order.Status = status
	m.orders[orderId] = order
	return nil
}
