package worker

import (
	"context"

	"storefront-orders/internal/broker"
	"storefront-orders/internal/service"
	"storefront-orders/internal/util"
)

// PaymentWorker consumes payment-confirmation events from the gateway
// collaborator and drives payment_pending orders through the state machine.
type PaymentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, statusService *service.StatusService) *PaymentWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPaymentConfirmed(statusService.HandlePaymentConfirmed)
	eventHandler.OnPaymentFailed(statusService.HandlePaymentFailed)

	return &PaymentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *PaymentWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting payment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PaymentWorker) Stop() error {
	util.GetLogger().Info("Stopping payment worker")
	return w.consumer.Close()
}
