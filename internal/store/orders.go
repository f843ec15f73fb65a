package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-orders/internal/models"

	"github.com/jmoiron/sqlx"
)

// payment columns are NULL when absent; coalesce so they scan into strings.
const orderColumns = `id, user_id, total_amount, status, shipping_address,
	COALESCE(payment_gateway, '') AS payment_gateway,
	COALESCE(payment_id, '') AS payment_id,
	COALESCE(payment_status, '') AS payment_status,
	created_at, updated_at, shipped_at`

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentID retrieves the order holding a payment reference.
// Returns (nil, nil) when no order holds it.
func (s *Store) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE payment_id = $1", paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all snapshot items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// TransitionOrder applies a lifecycle transition under a row lock. The target
// must be legal per the transition table; anything else aborts with
// InvalidTransitionError and no mutation. Transitions that cancel a
// stock-holding order restore each item's quantity in the same transaction
// and return the restored items.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, to models.Status) (*models.Order, []models.OrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transition: %w", err)
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, nil, &models.OrderNotFoundError{OrderID: orderID}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}

	if err := models.ValidateTransition(order.Status, to); err != nil {
		return nil, nil, err
	}

	if to == models.StatusShipped {
		err = tx.GetContext(ctx, &order, `
			UPDATE orders SET status = $1, shipped_at = NOW(), updated_at = NOW()
			WHERE id = $2
			RETURNING `+orderColumns, to, orderID)
	} else {
		err = tx.GetContext(ctx, &order, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING `+orderColumns, to, orderID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update order status: %w", err)
	}

	var restored []models.OrderItem
	if models.RestoresStock(to) {
		if err := tx.SelectContext(ctx, &restored,
			"SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_id", orderID); err != nil {
			return nil, nil, fmt.Errorf("failed to read items for restock: %w", err)
		}
		for _, item := range restored {
			_, err := tx.ExecContext(ctx,
				"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
				item.Quantity, item.ProductID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to restore stock for product %d: %w", item.ProductID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return &order, restored, nil
}

// DeliveredOrdersBetween scans delivered orders in [from, to). Only the
// range filter runs server-side; callers do any secondary ordering in
// memory, so no composite (status, time) index is assumed.
func (s *Store) DeliveredOrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND created_at >= $2 AND created_at < $3",
		models.StatusDelivered, from, to)
	return orders, err
}

// ItemsForOrders retrieves snapshot items for a set of orders
func (s *Store) ItemsForOrders(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItem{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?)", orderIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// IsEventProcessed checks if a consumed event has already taken effect
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed records a consumed event id
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
