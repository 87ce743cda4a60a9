package service

import (
	"context"
	"fmt"
	"strconv"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// HistoryRecorder writes consumed negotiation events to the history ledger
type HistoryRecorder struct {
	repo   store.NegotiationRepository
	logger *zap.Logger
}

// NewHistoryRecorder creates a new history recorder
func NewHistoryRecorder(repo store.NegotiationRepository) *HistoryRecorder {
	return &HistoryRecorder{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// HandleNegotiationEvent records event once. Redelivered events are acknowledged without a write.
func (r *HistoryRecorder) HandleNegotiationEvent(ctx context.Context, event *models.NegotiationEvent) error {
	ctx, span := util.StartSpan(ctx, "HistoryRecorder.HandleNegotiationEvent")
	defer span.End()

	if event.EventID == "" {
		return fmt.Errorf("negotiation event without id")
	}

	entry := &models.NegotiationHistoryEntry{
		EventID:       event.EventID,
		EventType:     event.EventType,
		NegotiationID: event.NegotiationID,
		CustomerID:    event.CustomerID,
		UnitIDs:       event.UnitIDs,
		OccurredAt:    event.Timestamp,
	}
	if entry.UnitIDs == nil {
		entry.UnitIDs = []int64{}
	}

	written, err := r.repo.RecordNegotiationEvent(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to record negotiation event: %w", err)
	}

	util.NegotiationEventsRecorded.WithLabelValues(event.EventType, strconv.FormatBool(!written)).Inc()
	if !written {
		r.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	r.logger.Info("Negotiation event recorded",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int64("negotiation_id", event.NegotiationID))
	return nil
}
