package service

import (
	"context"
	"time"

	"storefront-orders/internal/models"
)

// PlacementStore is what the idempotency guard and placement need from the
// backing store. *store.Store satisfies it.
type PlacementStore interface {
	PlaceOrder(ctx context.Context, p models.PlacementParams) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
}

// LifecycleStore is what status transitions and order reads need.
type LifecycleStore interface {
	TransitionOrder(ctx context.Context, orderID int64, to models.Status) (*models.Order, []models.OrderItem, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReportStore is the read-only surface the sales reader scans.
type ReportStore interface {
	DeliveredOrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	ItemsForOrders(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error)
}

// EventPublisher publishes domain events. Failures are logged, never
// propagated: the transaction already committed.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishStockRestored(ctx context.Context, event *models.StockRestoredEvent) error
}

// PaymentRefCache is the advisory redis fast-path in front of the DB
// idempotency lookup. The unique constraint remains the authority.
type PaymentRefCache interface {
	MarkPaymentSeen(ctx context.Context, paymentID string) (bool, error)
	InvalidateStock(ctx context.Context, productIDs []int64) error
}

// ReportCache caches report snapshots for a short TTL.
type ReportCache interface {
	GetSalesReport(ctx context.Context, key string) (*models.SalesReport, bool, error)
	SetSalesReport(ctx context.Context, key string, report *models.SalesReport) error
}
