package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeStockRestored      = "STOCK_RESTORED"
	EventTypePaymentConfirmed   = "PAYMENT_CONFIRMED"
	EventTypePaymentFailed      = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// OrderPlacedEvent published after a placement transaction commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount int64           `json:"total_amount"`
	PaymentID   string          `json:"payment_id"`
	Status      Status          `json:"status"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published after a lifecycle transition commits
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Actor   string `json:"actor"`
}

// StockRestoredEvent published when a cancellation gives stock back
type StockRestoredEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	Items   []OrderItemData `json:"items"`
}

// PaymentConfirmedEvent consumed from the payment collaborator
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Gateway   string `json:"gateway"`
}

// PaymentFailedEvent consumed from the payment collaborator
type PaymentFailedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}
