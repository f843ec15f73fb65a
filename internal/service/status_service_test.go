package service

import (
	"context"
	"testing"
	"time"

	"storefront-orders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusFixture(t *testing.T) (*StatusService, *OrderService, *fakeStore, *fakeCache, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	cache := newFakeCache()
	publisher := &fakePublisher{}
	return NewStatusService(store, cache, publisher), NewOrderService(store, cache, publisher), store, cache, publisher
}

func placeTestOrder(t *testing.T, orders *OrderService, ref string, awaiting bool) int64 {
	t.Helper()
	req := &SubmitOrderRequest{
		UserID:           7,
		Items:            []models.ItemRequest{{ProductID: 1, Quantity: 2}},
		ShippingAddress:  "12 Harbor Lane",
		PaymentReference: ref,
		Gateway:          "stripe",
		AwaitingPayment:  awaiting,
	}
	resp, err := orders.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	return resp.OrderID
}

func TestUpdateStatusHappyPath(t *testing.T) {
	status, orders, store, _, publisher := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_ship", false)

	shipped, err := status.UpdateStatus(context.Background(), orderID, models.StatusShipped, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	delivered, err := status.UpdateStatus(context.Background(), orderID, models.StatusDelivered, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)

	require.Len(t, publisher.statusChanged, 2)
	assert.Equal(t, models.StatusPendingShipment, publisher.statusChanged[0].From)
	assert.Equal(t, models.StatusShipped, publisher.statusChanged[0].To)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_terminal", false)

	_, err := status.UpdateStatus(context.Background(), orderID, models.StatusShipped, ActorAdmin)
	require.NoError(t, err)
	_, err = status.UpdateStatus(context.Background(), orderID, models.StatusDelivered, ActorAdmin)
	require.NoError(t, err)

	// Delivered never returns to the shipping pipeline.
	_, err = status.UpdateStatus(context.Background(), orderID, models.StatusPendingShipment, ActorAdmin)
	var invalid *models.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.StatusDelivered, invalid.From)
	assert.Equal(t, models.StatusPendingShipment, invalid.To)

	order, err := store.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, order.Status)
}

func TestUpdateStatusUnknownTarget(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_unknown", false)

	_, err := status.UpdateStatus(context.Background(), orderID, models.Status("LOST_IN_TRANSIT"), ActorAdmin)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestUpdateStatusOrderNotFound(t *testing.T) {
	status, _, _, _, _ := newStatusFixture(t)

	_, err := status.UpdateStatus(context.Background(), 404, models.StatusShipped, ActorAdmin)
	var missing *models.OrderNotFoundError
	require.ErrorAs(t, err, &missing)
}

func TestCancellationRestoresStock(t *testing.T) {
	status, orders, store, cache, publisher := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_cancel", false)
	require.Equal(t, 8, store.stock(1))

	order, err := status.UpdateStatus(context.Background(), orderID, models.StatusCancelledByAdmin, ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelledByAdmin, order.Status)

	// Compensating transaction gives the decrement back.
	assert.Equal(t, 10, store.stock(1))
	require.Len(t, publisher.restored, 1)
	assert.Equal(t, orderID, publisher.restored[0].OrderID)
	assert.Contains(t, cache.invalidated, int64(1))
}

func TestRefundDoesNotRestock(t *testing.T) {
	status, orders, store, _, publisher := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_refund", false)

	for _, next := range []models.Status{models.StatusShipped, models.StatusDelivered, models.StatusRefunded} {
		_, err := status.UpdateStatus(context.Background(), orderID, next, ActorAdmin)
		require.NoError(t, err)
	}

	// Goods already shipped; refunds move money, not stock.
	assert.Equal(t, 8, store.stock(1))
	assert.Empty(t, publisher.restored)
}

func TestHandlePaymentConfirmed(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_async", true)

	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		PaymentID: "pay_async",
	}
	require.NoError(t, status.HandlePaymentConfirmed(context.Background(), event))

	order, err := store.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingShipment, order.Status)
}

func TestHandlePaymentConfirmedRedelivery(t *testing.T) {
	status, orders, store, _, publisher := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_redelivered", true)

	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-dup",
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
	}
	require.NoError(t, status.HandlePaymentConfirmed(context.Background(), event))
	require.NoError(t, status.HandlePaymentConfirmed(context.Background(), event))

	// At-least-once delivery, exactly-once effect.
	assert.Len(t, publisher.statusChanged, 1)
}

func TestHandlePaymentFailedRestocks(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_declined", true)
	require.Equal(t, 8, store.stock(1))

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-fail",
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		Reason:  "card_declined",
	}
	require.NoError(t, status.HandlePaymentFailed(context.Background(), event))

	order, err := store.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentFailed, order.Status)
	assert.Equal(t, 10, store.stock(1))
}

func TestHandlePaymentEventResolvesByReference(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_by_ref", true)

	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-ref",
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		PaymentID: "pay_by_ref",
	}
	require.NoError(t, status.HandlePaymentConfirmed(context.Background(), event))

	order, err := store.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingShipment, order.Status)
}

func TestHandlePaymentEventAfterOrderMovedOn(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_raced", false)

	// Order is already past payment_pending; a stale confirmation must be
	// swallowed, not retried forever.
	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-stale",
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
	}
	require.NoError(t, status.HandlePaymentConfirmed(context.Background(), event))

	processed, err := store.IsEventProcessed(context.Background(), "evt-stale")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestGetOrderIncludesItems(t *testing.T) {
	status, orders, store, _, _ := newStatusFixture(t)
	store.addProduct(1, "Espresso Grinder", "kitchen", 89_00, 10)
	orderID := placeTestOrder(t, orders, "pay_read", false)

	order, err := status.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(89_00), order.Items[0].UnitPrice)
	assert.Equal(t, int64(178_00), order.Items[0].Subtotal)
}
