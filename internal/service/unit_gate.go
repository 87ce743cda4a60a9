package service

import (
	"context"
	"fmt"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// msgUnitsUnavailable is returned when a negotiation asks for a unit it cannot take
const msgUnitsUnavailable = "units must be available"

// UnitGate owns the available flag of units
type UnitGate struct {
	logger *zap.Logger
}

// NewUnitGate creates a new unit gate
func NewUnitGate() *UnitGate {
	return &UnitGate{logger: util.GetLogger()}
}

// CheckAvailable fails with a ValidationError when any id is missing, archived or taken
func (g *UnitGate) CheckAvailable(ctx context.Context, repo store.UnitRepository, unitIDs []int64) error {
	ctx, span := util.StartSpan(ctx, "UnitGate.CheckAvailable")
	defer span.End()

	ids := store.UniqueIDs(unitIDs)
	units, err := repo.GetUnitsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load units: %w", err)
	}

	if len(units) != len(ids) {
		util.UnitReservationsFailed.WithLabelValues("missing").Inc()
		return apperr.Validation(msgUnitsUnavailable)
	}
	for _, u := range units {
		if !u.Available || u.Archived {
			util.UnitReservationsFailed.WithLabelValues("unavailable").Inc()
			return apperr.Validation(msgUnitsUnavailable)
		}
	}
	return nil
}

// Reserve takes every unit with a conditional write. When one of them is no
// longer available the units reserved so far are released again.
func (g *UnitGate) Reserve(ctx context.Context, repo store.UnitRepository, unitIDs []int64) error {
	ctx, span := util.StartSpan(ctx, "UnitGate.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.UnitReserveLatency.Observe(time.Since(start).Seconds())
	}()

	ids := store.UniqueIDs(unitIDs)
	reserved := make([]int64, 0, len(ids))
	for _, id := range ids {
		ok, err := repo.ReserveUnit(ctx, id)
		if err != nil {
			util.UnitReservationsFailed.WithLabelValues("error").Inc()
			g.compensate(ctx, repo, reserved)
			return fmt.Errorf("failed to reserve unit %d: %w", id, err)
		}

		if !ok {
			util.UnitReservationsFailed.WithLabelValues("conflict").Inc()
			g.logger.Warn("Unit taken by a concurrent negotiation", zap.Int64("unit_id", id))
			g.compensate(ctx, repo, reserved)
			return apperr.Validation(msgUnitsUnavailable)
		}
		reserved = append(reserved, id)
	}

	return nil
}

// compensate releases the units of a failed reservation
func (g *UnitGate) compensate(ctx context.Context, repo store.UnitRepository, unitIDs []int64) {
	for _, id := range unitIDs {
		if err := repo.ReleaseUnit(ctx, id); err != nil {
			g.logger.Error("Failed to compensate unit reservation",
				zap.Int64("unit_id", id),
				zap.Error(err))
		}
	}
}

// Release makes every unit available again
func (g *UnitGate) Release(ctx context.Context, repo store.UnitRepository, unitIDs []int64) error {
	ctx, span := util.StartSpan(ctx, "UnitGate.Release")
	defer span.End()

	for _, id := range store.UniqueIDs(unitIDs) {
		if err := repo.ReleaseUnit(ctx, id); err != nil {
			return fmt.Errorf("failed to release unit %d: %w", id, err)
		}
		util.UnitsReleasedTotal.Inc()
	}
	return nil
}
