package worker

import (
	"context"

	"rental-service/internal/broker"
	"rental-service/internal/service"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// NegotiationWorker consumes negotiation events into the history ledger
type NegotiationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNegotiationWorker creates a new negotiation worker
func NewNegotiationWorker(
	consumer *broker.Consumer,
	recorder *service.HistoryRecorder,
) *NegotiationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnNegotiationEvent(recorder.HandleNegotiationEvent)

	return &NegotiationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks until ctx is cancelled
func (w *NegotiationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting negotiation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NegotiationWorker) Stop() error {
	w.logger.Info("Stopping negotiation worker")
	return w.consumer.Close()
}
