package service

import (
	"context"
	"sync"
	"time"

	"storefront-orders/internal/models"
)

// fakeStore is an in-memory stand-in for store.Store. A single mutex plays
// the role of the database's transaction isolation: every operation is
// atomic and serialized, which is exactly the contract the services rely on.
type fakeStore struct {
	mu          sync.Mutex
	products    map[int64]*models.Product
	orders      map[int64]*models.Order
	items       map[int64][]models.OrderItem
	byPayment   map[string]int64
	processed   map[string]string
	nextOrderID int64
	nextItemID  int64

	placeErr    error
	placeCalls  int
	reportCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  make(map[int64]*models.Product),
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]models.OrderItem),
		byPayment: make(map[string]int64),
		processed: make(map[string]string),
	}
}

func (f *fakeStore) addProduct(id int64, name, category string, price int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = &models.Product{ID: id, Name: name, Category: category, Price: price, Stock: stock}
}

func (f *fakeStore) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

func (f *fakeStore) setCreatedAt(orderID int64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID].CreatedAt = at
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (f *fakeStore) PlaceOrder(_ context.Context, p models.PlacementParams) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placeCalls++

	if p.PaymentID != "" {
		if _, taken := f.byPayment[p.PaymentID]; taken {
			return nil, &models.DuplicateSubmissionError{PaymentID: p.PaymentID}
		}
	}

	// Validate everything before mutating anything: all-or-nothing.
	var total int64
	for _, item := range p.Items {
		prod, ok := f.products[item.ProductID]
		if !ok {
			return nil, &models.ProductNotFoundError{ProductID: item.ProductID}
		}
		if prod.Stock < item.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID: prod.ID,
				Name:      prod.Name,
				Available: prod.Stock,
				Requested: item.Quantity,
			}
		}
		total += prod.Price * int64(item.Quantity)
	}

	now := time.Now()
	f.nextOrderID++
	order := &models.Order{
		ID:              f.nextOrderID,
		UserID:          p.UserID,
		TotalAmount:     total,
		Status:          p.InitialStatus,
		ShippingAddress: p.ShippingAddress,
		PaymentGateway:  p.PaymentGateway,
		PaymentID:       p.PaymentID,
		PaymentStatus:   p.PaymentStatus,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]models.OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		prod := f.products[item.ProductID]
		prod.Stock -= item.Quantity
		f.nextItemID++
		items = append(items, models.OrderItem{
			ID:        f.nextItemID,
			OrderID:   order.ID,
			ProductID: prod.ID,
			Name:      prod.Name,
			Category:  prod.Category,
			Quantity:  item.Quantity,
			UnitPrice: prod.Price,
			Subtotal:  prod.Price * int64(item.Quantity),
		})
	}

	order.Items = items
	f.orders[order.ID] = order
	f.items[order.ID] = items
	if p.PaymentID != "" {
		f.byPayment[p.PaymentID] = order.ID
	}
	return copyOrder(order), nil
}

func (f *fakeStore) GetOrderByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPayment[paymentID]
	if !ok {
		return nil, nil
	}
	return copyOrder(f.orders[id]), nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, &models.OrderNotFoundError{OrderID: id}
	}
	return copyOrder(order), nil
}

func (f *fakeStore) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeStore) GetOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			out = append(out, *copyOrder(order))
		}
	}
	return out, nil
}

func (f *fakeStore) TransitionOrder(_ context.Context, orderID int64, to models.Status) (*models.Order, []models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return nil, nil, &models.OrderNotFoundError{OrderID: orderID}
	}
	if err := models.ValidateTransition(order.Status, to); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	order.Status = to
	order.UpdatedAt = now
	if to == models.StatusShipped {
		shipped := now
		order.ShippedAt = &shipped
	}

	var restored []models.OrderItem
	if models.RestoresStock(to) {
		for _, item := range f.items[orderID] {
			f.products[item.ProductID].Stock += item.Quantity
		}
		restored = append([]models.OrderItem(nil), f.items[orderID]...)
	}
	return copyOrder(order), restored, nil
}

func (f *fakeStore) DeliveredOrdersBetween(_ context.Context, from, to time.Time) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	var out []models.Order
	for _, order := range f.orders {
		if order.Status != models.StatusDelivered {
			continue
		}
		if order.CreatedAt.Before(from) || !order.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *copyOrder(order))
	}
	return out, nil
}

func (f *fakeStore) ItemsForOrders(_ context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderItem
	for _, id := range orderIDs {
		out = append(out, f.items[id]...)
	}
	return out, nil
}

func (f *fakeStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeStore) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[eventID] = eventType
	return nil
}

// fakeCache implements the redis ports with SetNX semantics.
type fakeCache struct {
	mu          sync.Mutex
	seen        map[string]bool
	invalidated []int64
	reports     map[string]*models.SalesReport
	seenErr     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		seen:    make(map[string]bool),
		reports: make(map[string]*models.SalesReport),
	}
}

func (c *fakeCache) MarkPaymentSeen(_ context.Context, paymentID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seenErr != nil {
		return false, c.seenErr
	}
	if c.seen[paymentID] {
		return false, nil
	}
	c.seen[paymentID] = true
	return true, nil
}

func (c *fakeCache) InvalidateStock(_ context.Context, productIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, productIDs...)
	return nil
}

func (c *fakeCache) GetSalesReport(_ context.Context, key string) (*models.SalesReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.reports[key]
	return report, ok, nil
}

func (c *fakeCache) SetSalesReport(_ context.Context, key string, report *models.SalesReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[key] = report
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu            sync.Mutex
	placed        []*models.OrderPlacedEvent
	statusChanged []*models.OrderStatusChangedEvent
	restored      []*models.StockRestoredEvent
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return nil
}

func (p *fakePublisher) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanged = append(p.statusChanged, event)
	return nil
}

func (p *fakePublisher) PublishStockRestored(_ context.Context, event *models.StockRestoredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restored = append(p.restored, event)
	return nil
}
