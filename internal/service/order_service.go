package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-orders/internal/models"
	"storefront-orders/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService wraps the placement transaction with the idempotency guard:
// at most one order per payment reference, no matter how often the checkout
// callback fires.
type OrderService struct {
	store     PlacementStore
	cache     PaymentRefCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store PlacementStore, cache PaymentRefCache, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// SubmitOrderRequest is the inbound placement request from the
// payment-confirmation collaborator. Monetary values are absent on purpose:
// prices come from the catalog inside the transaction.
type SubmitOrderRequest struct {
	UserID           int64                `json:"user_id" binding:"required"`
	Items            []models.ItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress  string               `json:"shipping_address" binding:"required"`
	PaymentReference string               `json:"payment_reference" binding:"required"`
	Gateway          string               `json:"gateway"`
	// AwaitingPayment selects the legacy entry that creates the order before
	// payment confirmation; the payment worker moves it on later.
	AwaitingPayment bool `json:"awaiting_payment,omitempty"`
}

// SubmitOrderResponse reports the order an accepted submission resolved to.
type SubmitOrderResponse struct {
	OrderID   int64         `json:"order_id"`
	Status    models.Status `json:"status"`
	Duplicate bool          `json:"duplicate"`
}

// SubmitOrder places an order exactly once per payment reference. A repeat
// submission resolves to the existing order without touching stock.
func (s *OrderService) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SubmitOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PlacementLatency.Observe(time.Since(start).Seconds())
	}()

	items, err := normalizeItems(req)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	existing, err := s.store.GetOrderByPaymentID(ctx, req.PaymentReference)
	if err != nil {
		return nil, s.persistence("idempotency lookup", err)
	}
	if existing != nil {
		util.OrdersDuplicateTotal.Inc()
		s.logger.Info("Duplicate submission resolved to existing order",
			zap.String("payment_id", req.PaymentReference),
			zap.Int64("order_id", existing.ID))
		return &SubmitOrderResponse{OrderID: existing.ID, Status: existing.Status, Duplicate: true}, nil
	}

	// Advisory fast-path. First-seen or not, the unique constraint at commit
	// time remains the authority, so a cache failure only costs a log line.
	if first, err := s.cache.MarkPaymentSeen(ctx, req.PaymentReference); err != nil {
		s.logger.Warn("Payment reference cache unavailable", zap.Error(err))
	} else if !first {
		s.logger.Info("Payment reference seen recently, racing submission likely",
			zap.String("payment_id", req.PaymentReference))
	}

	params := models.PlacementParams{
		UserID:          req.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentGateway:  req.Gateway,
		PaymentID:       req.PaymentReference,
		PaymentStatus:   models.PaymentStatusConfirmed,
		InitialStatus:   models.StatusPendingShipment,
	}
	if req.AwaitingPayment {
		params.PaymentStatus = models.PaymentStatusPending
		params.InitialStatus = models.StatusPaymentPending
	}

	order, err := s.store.PlaceOrder(ctx, params)
	if err != nil {
		return s.resolvePlacementError(ctx, req.PaymentReference, err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int64("total_amount", order.TotalAmount),
		zap.String("status", string(order.Status)))

	s.afterPlacement(ctx, order)

	return &SubmitOrderResponse{OrderID: order.ID, Status: order.Status}, nil
}

// resolvePlacementError turns a commit-time duplicate into the winner's
// order id and classifies everything else.
func (s *OrderService) resolvePlacementError(ctx context.Context, paymentID string, err error) (*SubmitOrderResponse, error) {
	var duplicate *models.DuplicateSubmissionError
	if errors.As(err, &duplicate) {
		winner, lookupErr := s.store.GetOrderByPaymentID(ctx, paymentID)
		if lookupErr != nil || winner == nil {
			if lookupErr == nil {
				lookupErr = errors.New("winner missing after duplicate submission")
			}
			return nil, s.persistence("duplicate winner lookup", lookupErr)
		}
		util.OrdersDuplicateTotal.Inc()
		s.logger.Info("Lost placement race, resolved to winner",
			zap.String("payment_id", paymentID),
			zap.Int64("order_id", winner.ID))
		return &SubmitOrderResponse{OrderID: winner.ID, Status: winner.Status, Duplicate: true}, nil
	}

	var stock *models.InsufficientStockError
	var missing *models.ProductNotFoundError
	var conflict *models.TransactionConflictError
	switch {
	case errors.As(err, &stock):
		util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	case errors.As(err, &missing):
		util.OrdersRejectedTotal.WithLabelValues("product_not_found").Inc()
		return nil, err
	case errors.As(err, &conflict):
		util.PlacementRetriesTotal.Add(float64(conflict.Attempts))
		util.OrdersRejectedTotal.WithLabelValues("conflict").Inc()
		s.logger.Warn("Placement conflict retries exhausted",
			zap.String("payment_id", paymentID),
			zap.Int("attempts", conflict.Attempts))
		return nil, err
	}

	return nil, s.persistence("placement", err)
}

// afterPlacement handles the best-effort side effects of a committed order:
// downstream stock caches and the placed event.
func (s *OrderService) afterPlacement(ctx context.Context, order *models.Order) {
	productIDs := make([]int64, 0, len(order.Items))
	eventItems := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	if err := s.cache.InvalidateStock(ctx, productIDs); err != nil {
		s.logger.Warn("Failed to invalidate stock cache", zap.Error(err))
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		PaymentID:   order.PaymentID,
		Status:      order.Status,
		Items:       eventItems,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// persistence wraps an unexpected store failure behind an opaque reference.
func (s *OrderService) persistence(op string, cause error) error {
	ref := uuid.New().String()[:8]
	s.logger.Error("Persistence failure",
		zap.String("op", op),
		zap.String("ref", ref),
		zap.Error(cause))
	return models.NewPersistenceError(ref, fmt.Errorf("%s: %w", op, cause))
}

// normalizeItems validates the request and merges repeated product lines so
// the transaction locks each product once.
func normalizeItems(req *SubmitOrderRequest) ([]models.ItemRequest, error) {
	if req.UserID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	if req.PaymentReference == "" {
		return nil, &models.ValidationError{Field: "payment_reference", Reason: "must not be empty"}
	}
	if req.ShippingAddress == "" {
		return nil, &models.ValidationError{Field: "shipping_address", Reason: "must not be empty"}
	}
	if len(req.Items) == 0 {
		return nil, &models.ValidationError{Field: "items", Reason: "must not be empty"}
	}

	merged := make(map[int64]int, len(req.Items))
	order := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return nil, &models.ValidationError{Field: "items.product_id", Reason: "must be positive"}
		}
		if item.Quantity <= 0 {
			return nil, &models.ValidationError{Field: "items.quantity", Reason: "must be positive"}
		}
		if _, seen := merged[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		merged[item.ProductID] += item.Quantity
	}

	items := make([]models.ItemRequest, 0, len(order))
	for _, id := range order {
		items = append(items, models.ItemRequest{ProductID: id, Quantity: merged[id]})
	}
	return items, nil
}
