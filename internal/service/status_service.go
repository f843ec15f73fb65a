package service

import (
	"context"
	"errors"
	"time"

	"storefront-orders/internal/models"
	"storefront-orders/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transition actors, recorded on status-change events
const (
	ActorAdmin   = "admin"
	ActorUser    = "user"
	ActorPayment = "payment"
)

// StatusService owns order lifecycle mutations after placement: admin status
// updates, user cancellation, and payment-confirmation transitions consumed
// from the broker. The transition table is the only path to a status change.
type StatusService struct {
	store     LifecycleStore
	cache     PaymentRefCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewStatusService creates a new status service
func NewStatusService(store LifecycleStore, cache PaymentRefCache, publisher EventPublisher) *StatusService {
	return &StatusService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// UpdateStatus applies a caller-supplied transition. The machine validates
// the target; nothing is inferred. Cancellations restore stock in the same
// transaction as the status change.
func (s *StatusService) UpdateStatus(ctx context.Context, orderID int64, to models.Status, actor string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "StatusService.UpdateStatus")
	defer span.End()

	if !to.Valid() {
		return nil, &models.ValidationError{Field: "new_status", Reason: "unknown status"}
	}

	from, err := s.currentStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order, restored, err := s.store.TransitionOrder(ctx, orderID, to)
	if err != nil {
		var invalid *models.InvalidTransitionError
		if errors.As(err, &invalid) {
			util.InvalidTransitionsTotal.Inc()
		}
		return nil, err
	}

	util.StatusTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor))

	s.publishStatusChanged(ctx, order, from, to, actor)

	if len(restored) > 0 {
		s.afterRestock(ctx, order, restored)
	}

	return order, nil
}

// currentStatus reads the pre-transition status for metrics and events. The
// transition itself re-reads under the row lock, so this is informational.
func (s *StatusService) currentStatus(ctx context.Context, orderID int64) (models.Status, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

func (s *StatusService) publishStatusChanged(ctx context.Context, order *models.Order, from, to models.Status, actor string) {
	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		From:    from,
		To:      to,
		Actor:   actor,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

// afterRestock handles the best-effort side effects of a compensating
// restock: cache invalidation and the restored event.
func (s *StatusService) afterRestock(ctx context.Context, order *models.Order, restored []models.OrderItem) {
	productIDs := make([]int64, 0, len(restored))
	eventItems := make([]models.OrderItemData, 0, len(restored))
	var units int
	for _, item := range restored {
		productIDs = append(productIDs, item.ProductID)
		units += item.Quantity
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	util.StockRestoredTotal.Add(float64(units))

	if err := s.cache.InvalidateStock(ctx, productIDs); err != nil {
		s.logger.Warn("Failed to invalidate stock cache after restock", zap.Error(err))
	}

	event := &models.StockRestoredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockRestored,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		Items:   eventItems,
	}
	if err := s.publisher.PublishStockRestored(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockRestored event", zap.Error(err))
	}
}

// HandlePaymentConfirmed moves a payment_pending order to pending_shipment.
// Consumed at-least-once; the processed-events table keeps the effect
// exactly-once.
func (s *StatusService) HandlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "StatusService.HandlePaymentConfirmed")
	defer span.End()

	return s.handlePaymentEvent(ctx, event.EventID, event.EventType, event.OrderID, event.PaymentID, models.StatusPendingShipment)
}

// HandlePaymentFailed moves a payment_pending order to payment_failed, which
// restores the reserved stock.
func (s *StatusService) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "StatusService.HandlePaymentFailed")
	defer span.End()

	return s.handlePaymentEvent(ctx, event.EventID, event.EventType, event.OrderID, event.PaymentID, models.StatusPaymentFailed)
}

func (s *StatusService) handlePaymentEvent(ctx context.Context, eventID, eventType string, orderID int64, paymentID string, to models.Status) error {
	processed, err := s.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return err
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", eventID))
		return nil
	}

	// Events may carry only the payment reference when the collaborator does
	// not know our order id.
	if orderID == 0 && paymentID != "" {
		order, err := s.store.GetOrderByPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		if order == nil {
			s.logger.Warn("Payment event for unknown payment reference",
				zap.String("event_id", eventID),
				zap.String("payment_id", paymentID))
			return s.store.MarkEventProcessed(ctx, eventID, eventType)
		}
		orderID = order.ID
	}

	if _, err := s.UpdateStatus(ctx, orderID, to, ActorPayment); err != nil {
		// A transition that is no longer legal means the order already moved
		// (admin raced us, or a duplicate delivery). Not retryable.
		var invalid *models.InvalidTransitionError
		if errors.As(err, &invalid) {
			s.logger.Warn("Payment event arrived after order moved on",
				zap.Int64("order_id", orderID),
				zap.String("target", string(to)))
			return s.store.MarkEventProcessed(ctx, eventID, eventType)
		}
		return err
	}

	return s.store.MarkEventProcessed(ctx, eventID, eventType)
}

// GetOrder retrieves an order with its item snapshots
func (s *StatusService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListOrders retrieves a user's orders, newest first
func (s *StatusService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	if userID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	return s.store.GetOrdersByUserID(ctx, userID)
}
