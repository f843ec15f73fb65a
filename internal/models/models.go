package models

import "time"

// Product represents a catalog product. Price and stock are authoritative;
// client-submitted values are never trusted for either.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	Price     int64     `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order. Items and total_amount are write-once;
// status is mutated only through the lifecycle transition table.
type Order struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	TotalAmount     int64      `db:"total_amount" json:"total_amount"`
	Status          Status     `db:"status" json:"status"`
	ShippingAddress string     `db:"shipping_address" json:"shipping_address"`
	PaymentGateway  string     `db:"payment_gateway" json:"payment_gateway,omitempty"`
	PaymentID       string     `db:"payment_id" json:"payment_id,omitempty"`
	PaymentStatus   string     `db:"payment_status" json:"payment_status,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	ShippedAt       *time.Time `db:"shipped_at" json:"shipped_at,omitempty"`

	// Items is populated by reads that join the snapshot rows in; it is not
	// a column of the orders table.
	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is a purchase-time snapshot of a product line. Name, category and
// unit_price are copied from the product row read inside the placement
// transaction so later catalog edits never change a past order.
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Category  string `db:"category" json:"category"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Subtotal  int64  `db:"subtotal" json:"subtotal"`
}

// Payment statuses recorded on the order
const (
	PaymentStatusConfirmed = "CONFIRMED"
	PaymentStatusPending   = "PENDING"
	PaymentStatusFailed    = "FAILED"
)

// ItemRequest is a single requested line: product and quantity only. Any
// price the client sends alongside is advisory and ignored.
type ItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// PlacementParams carries everything the placement transaction needs.
type PlacementParams struct {
	UserID          int64
	Items           []ItemRequest
	ShippingAddress string
	PaymentGateway  string
	PaymentID       string
	PaymentStatus   string
	InitialStatus   Status
}

// SalesLineItem is one grouped row of the sales report.
type SalesLineItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	UnitsSold int    `json:"units_sold"`
	Revenue   int64  `json:"revenue"`
}

// SalesReport is a read-time snapshot over delivered orders in a window.
type SalesReport struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	TotalSales     int64           `json:"total_sales"`
	NumberOfOrders int             `json:"number_of_orders"`
	LineItems      []SalesLineItem `json:"line_items"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
