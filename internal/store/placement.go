package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"storefront-orders/internal/models"
)

// lockedProduct is the fresh product row read under FOR UPDATE. Everything
// the order snapshot needs comes from here, never from the request.
type lockedProduct struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Category string `db:"category"`
	Price    int64  `db:"price"`
	Stock    int    `db:"stock"`
}

// PlaceOrder runs the atomic placement: lock every requested product, verify
// stock, recompute prices server-side, decrement stock and write the order
// with its item snapshots, all in one transaction. Write conflicts retry the
// whole transaction up to MaxPlacementAttempts.
func (s *Store) PlaceOrder(ctx context.Context, p models.PlacementParams) (*models.Order, error) {
	attempts := s.MaxPlacementAttempts
	if attempts <= 0 {
		attempts = defaultPlacementAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		order, err := s.placeOrderOnce(ctx, p)
		if err == nil {
			return order, nil
		}
		if !isSerializationFailure(err) {
			return nil, err
		}
	}
	return nil, &models.TransactionConflictError{Attempts: attempts}
}

func (s *Store) placeOrderOnce(ctx context.Context, p models.PlacementParams) (*models.Order, error) {
	// Lock products in ascending id order so concurrent placements touching
	// the same set cannot deadlock each other.
	items := make([]models.ItemRequest, len(p.Items))
	copy(items, p.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin placement transaction: %w", err)
	}
	defer tx.Rollback()

	products := make(map[int64]lockedProduct, len(items))
	var total int64

	for _, item := range items {
		var prod lockedProduct
		err := tx.GetContext(ctx, &prod,
			"SELECT id, name, category, price, stock FROM products WHERE id = $1 FOR UPDATE",
			item.ProductID)
		if err == sql.ErrNoRows {
			return nil, &models.ProductNotFoundError{ProductID: item.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock product %d: %w", item.ProductID, err)
		}

		if prod.Stock < item.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID: prod.ID,
				Name:      prod.Name,
				Available: prod.Stock,
				Requested: item.Quantity,
			}
		}

		products[prod.ID] = prod
		total += prod.Price * int64(item.Quantity)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
			item.Quantity, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
	}

	order := &models.Order{
		UserID:          p.UserID,
		TotalAmount:     total,
		Status:          p.InitialStatus,
		ShippingAddress: p.ShippingAddress,
		PaymentGateway:  p.PaymentGateway,
		PaymentID:       p.PaymentID,
		PaymentStatus:   p.PaymentStatus,
	}

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (user_id, total_amount, status, shipping_address, payment_gateway, payment_id, payment_status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id, created_at, updated_at`,
		p.UserID, total, p.InitialStatus, p.ShippingAddress, p.PaymentGateway, p.PaymentID, p.PaymentStatus)
	if err != nil {
		if isPaymentIDConflict(err) {
			return nil, &models.DuplicateSubmissionError{PaymentID: p.PaymentID}
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	itemRows := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		prod := products[item.ProductID]
		row := models.OrderItem{
			OrderID:   order.ID,
			ProductID: prod.ID,
			Name:      prod.Name,
			Category:  prod.Category,
			Quantity:  item.Quantity,
			UnitPrice: prod.Price,
			Subtotal:  prod.Price * int64(item.Quantity),
		}
		err := tx.GetContext(ctx, &row.ID, `
			INSERT INTO order_items (order_id, product_id, name, category, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			row.OrderID, row.ProductID, row.Name, row.Category, row.Quantity, row.UnitPrice, row.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
		itemRows = append(itemRows, row)
	}

	if err := tx.Commit(); err != nil {
		if isPaymentIDConflict(err) {
			return nil, &models.DuplicateSubmissionError{PaymentID: p.PaymentID}
		}
		return nil, fmt.Errorf("failed to commit placement: %w", err)
	}

	order.Items = itemRows
	return order, nil
}
