package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// idempotencyPending marks a key whose negotiation is still being created
const idempotencyPending = "pending"

// EventPublisher publishes negotiation lifecycle events
type EventPublisher interface {
	PublishNegotiationEvent(ctx context.Context, event *models.NegotiationEvent) error
}

// IdempotencyStore remembers which negotiation answered an idempotency key.
// ClaimIdempotencyKey returns the stored value and false when the key is
// already known, otherwise it stores a pending marker living for pendingTTL
// and returns true.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, pendingTTL time.Duration) (string, bool, error)
	CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// NegotiationOptions tunes the negotiation lifecycle
type NegotiationOptions struct {
	// ReleaseOnArchive makes the units of an undelivered negotiation available when it is archived.
	ReleaseOnArchive bool
	// IdempotencyTTL keeps the negotiation id of a completed key.
	IdempotencyTTL time.Duration
	// IdempotencyPendingTTL bounds how long a claim survives a request that never settles it.
	IdempotencyPendingTTL time.Duration
}

// NegotiationService handles the negotiation lifecycle
type NegotiationService struct {
	repo        store.Repository
	gate        *UnitGate
	publisher   EventPublisher
	idempotency IdempotencyStore
	opts        NegotiationOptions
	now         func() time.Time
	logger      *zap.Logger
}

// NewNegotiationService creates a new negotiation service. publisher and
// idempotency may be nil.
func NewNegotiationService(
	repo store.Repository,
	gate *UnitGate,
	publisher EventPublisher,
	idempotency IdempotencyStore,
	opts NegotiationOptions,
) *NegotiationService {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.IdempotencyPendingTTL <= 0 {
		opts.IdempotencyPendingTTL = time.Minute
	}

	return &NegotiationService{
		repo:        repo,
		gate:        gate,
		publisher:   publisher,
		idempotency: idempotency,
		opts:        opts,
		now:         time.Now,
		logger:      util.GetLogger(),
	}
}

// CreateNegotiationRequest represents a request to create a negotiation
type CreateNegotiationRequest struct {
	CustomerID          int64                  `json:"customerId" binding:"required"`
	NegotiationType     models.NegotiationType `json:"negotiationType" binding:"required,negotiationtype"`
	TotalPrice          decimal.NullDecimal    `json:"totalPrice"`
	ScheduledDeliveryAt time.Time              `json:"scheduledDeliveryAt" binding:"required"`
	Units               []int64                `json:"units" binding:"required,min=1"`
	IdempotencyKey      string                 `json:"-"`
}

// Create reserves the requested units and records the negotiation in one transaction
func (s *NegotiationService) Create(ctx context.Context, req *CreateNegotiationRequest) (*models.Negotiation, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.Create")
	defer span.End()

	if req.IdempotencyKey != "" && s.idempotency != nil {
		existing, claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, req.IdempotencyKey, s.opts.IdempotencyPendingTTL)
		switch {
		case err != nil:
			s.logger.Warn("Idempotency claim failed, creating without key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(err))
		case !claimed:
			return s.replay(ctx, req.IdempotencyKey, existing)
		default:
			negotiation, err := s.create(ctx, req)
			s.settleKey(ctx, req.IdempotencyKey, negotiation, err)
			return negotiation, err
		}
	}

	return s.create(ctx, req)
}

// replay answers a request whose idempotency key was already used
func (s *NegotiationService) replay(ctx context.Context, key, value string) (*models.Negotiation, error) {
	if value == idempotencyPending {
		util.NegotiationsFailedTotal.WithLabelValues("create", "idempotency_in_flight").Inc()
		return nil, apperr.Validation("a request with idempotency key %q is still in progress", key)
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency record for key %q: %w", key, err)
	}

	s.logger.Info("Duplicate negotiation request detected",
		zap.String("idempotency_key", key),
		zap.Int64("negotiation_id", id))
	util.IdempotentReplaysTotal.Inc()

	return s.GetOne(ctx, id)
}

// settleKey stores the created negotiation under key, or frees the key when
// creation failed. It runs even when the caller has gone away.
func (s *NegotiationService) settleKey(ctx context.Context, key string, negotiation *models.Negotiation, createErr error) {
	ctx = context.WithoutCancel(ctx)
	if createErr != nil {
		if err := s.idempotency.ReleaseIdempotencyKey(ctx, key); err != nil {
			s.logger.Error("Failed to release idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(err))
		}
		return
	}

	value := strconv.FormatInt(negotiation.ID, 10)
	if err := s.idempotency.CompleteIdempotencyKey(ctx, key, value, s.opts.IdempotencyTTL); err != nil {
		s.logger.Error("Failed to complete idempotency key",
			zap.String("idempotency_key", key),
			zap.Int64("negotiation_id", negotiation.ID),
			zap.Error(err))
	}
}

func (s *NegotiationService) create(ctx context.Context, req *CreateNegotiationRequest) (*models.Negotiation, error) {
	unitIDs := store.UniqueIDs(req.Units)
	if len(unitIDs) == 0 {
		return nil, apperr.Validation("a negotiation needs at least one unit")
	}
	if !req.NegotiationType.Valid() {
		return nil, apperr.Validation("unknown negotiation type %q", req.NegotiationType)
	}

	var negotiation *models.Negotiation
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		if _, err := tx.GetCustomer(ctx, req.CustomerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Validation("customer %d does not exist", req.CustomerID)
			}
			return err
		}

		if err := s.gate.CheckAvailable(ctx, tx, unitIDs); err != nil {
			return err
		}

		n := &models.Negotiation{
			CustomerID:          req.CustomerID,
			NegotiationType:     req.NegotiationType,
			TotalPrice:          req.TotalPrice,
			ScheduledDeliveryAt: req.ScheduledDeliveryAt,
		}
		if err := tx.CreateNegotiation(ctx, n, unitIDs); err != nil {
			return translate(store.Negotiations, nil, err)
		}

		if err := s.gate.Reserve(ctx, tx, unitIDs); err != nil {
			return err
		}

		created, err := tx.GetNegotiation(ctx, n.ID)
		if err != nil {
			return translate(store.Negotiations, n.ID, err)
		}
		negotiation = created
		return nil
	})
	if err != nil {
		util.NegotiationsFailedTotal.WithLabelValues("create", failureReason(err)).Inc()
		return nil, err
	}

	util.NegotiationsCreatedTotal.WithLabelValues(string(negotiation.NegotiationType)).Inc()
	s.logger.Info("Negotiation created",
		zap.Int64("negotiation_id", negotiation.ID),
		zap.Int64("customer_id", negotiation.CustomerID),
		zap.Int64s("unit_ids", negotiation.UnitIDs()))

	s.publish(ctx, models.EventTypeNegotiationCreated, negotiation)
	return negotiation, nil
}

// Deliver releases the units of a negotiation and stamps its delivery time
func (s *NegotiationService) Deliver(ctx context.Context, id int64) (*models.Negotiation, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.Deliver")
	defer span.End()

	var negotiation *models.Negotiation
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		n, err := tx.LockNegotiation(ctx, id)
		if err != nil {
			return translate(store.Negotiations, id, err)
		}
		if n.Delivered() {
			return apperr.Validation("negotiation %d already delivered", id)
		}

		// The stamp goes first so units are only released by the call that delivered.
		if err := tx.MarkNegotiationDelivered(ctx, id, s.now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Validation("negotiation %d already delivered", id)
			}
			return translate(store.Negotiations, id, err)
		}
		if err := s.gate.Release(ctx, tx, n.UnitIDs()); err != nil {
			return err
		}

		delivered, err := tx.GetNegotiation(ctx, id)
		if err != nil {
			return translate(store.Negotiations, id, err)
		}
		negotiation = delivered
		return nil
	})
	if err != nil {
		util.NegotiationsFailedTotal.WithLabelValues("deliver", failureReason(err)).Inc()
		return nil, err
	}

	util.NegotiationsDeliveredTotal.Inc()
	s.logger.Info("Negotiation delivered", zap.Int64("negotiation_id", id))

	s.publish(ctx, models.EventTypeNegotiationDelivered, negotiation)
	return negotiation, nil
}

// Destroy archives a negotiation. Units of an undelivered negotiation are
// released as well when ReleaseOnArchive is set.
func (s *NegotiationService) Destroy(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "NegotiationService.Destroy")
	defer span.End()

	var (
		negotiation *models.Negotiation
		released    bool
	)
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		n, err := tx.LockNegotiation(ctx, id)
		if err != nil {
			return translate(store.Negotiations, id, err)
		}

		if err := tx.Archive(ctx, store.Negotiations, id); err != nil {
			return translate(store.Negotiations, id, err)
		}

		if s.opts.ReleaseOnArchive && !n.Delivered() {
			if err := s.gate.Release(ctx, tx, n.UnitIDs()); err != nil {
				return err
			}
			released = true
		}
		negotiation = n
		return nil
	})
	if err != nil {
		util.NegotiationsFailedTotal.WithLabelValues("archive", failureReason(err)).Inc()
		return err
	}

	util.NegotiationsArchivedTotal.WithLabelValues(strconv.FormatBool(released)).Inc()
	s.logger.Info("Negotiation archived",
		zap.Int64("negotiation_id", id),
		zap.Bool("units_released", released))

	s.publish(ctx, models.EventTypeNegotiationArchived, negotiation)
	return nil
}

func (s *NegotiationService) GetAll(ctx context.Context, p models.ListParams) (*models.Results[models.Negotiation], error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.GetAll")
	defer span.End()

	negotiations, total, err := s.repo.ListNegotiations(ctx, p)
	if err != nil {
		return nil, err
	}
	return results(negotiations, total), nil
}

func (s *NegotiationService) GetOne(ctx context.Context, id int64) (*models.Negotiation, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.GetOne")
	defer span.End()

	negotiation, err := s.repo.GetNegotiation(ctx, id)
	if err != nil {
		return nil, translate(store.Negotiations, id, err)
	}
	return negotiation, nil
}

// History returns the recorded lifecycle events of a negotiation
func (s *NegotiationService) History(ctx context.Context, id int64) ([]models.NegotiationHistoryEntry, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.History")
	defer span.End()

	if _, err := s.repo.GetNegotiation(ctx, id); err != nil {
		return nil, translate(store.Negotiations, id, err)
	}

	events, err := s.repo.ListNegotiationEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list negotiation events: %w", err)
	}
	if events == nil {
		events = []models.NegotiationHistoryEntry{}
	}
	return events, nil
}

// publish emits a lifecycle event. Publishing failures are logged and never fail the caller.
func (s *NegotiationService) publish(ctx context.Context, eventType string, n *models.Negotiation) {
	if s.publisher == nil {
		return
	}

	event := &models.NegotiationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		NegotiationID:   n.ID,
		CustomerID:      n.CustomerID,
		NegotiationType: n.NegotiationType,
		UnitIDs:         n.UnitIDs(),
	}

	if err := s.publisher.PublishNegotiationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish negotiation event",
			zap.String("event_type", eventType),
			zap.Int64("negotiation_id", n.ID),
			zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case apperr.IsNotFound(err):
		return "not_found"
	case apperr.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
