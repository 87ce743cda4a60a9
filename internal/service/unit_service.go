package service

import (
	"context"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnitInput is the body of unit create and update requests. Availability is
// owned by negotiations and cannot be set here.
type UnitInput struct {
	AvailableFor []models.NegotiationType `json:"availableFor" binding:"omitempty,dive,negotiationtype"`
	SalePrice    decimal.NullDecimal      `json:"salePrice"`
	RentalPrice  decimal.NullDecimal      `json:"rentalPrice"`
}

func (in *UnitInput) unit(mediaID, id int64) *models.Unit {
	offers := pq.StringArray{}
	seen := map[models.NegotiationType]bool{}
	for _, t := range in.AvailableFor {
		if !seen[t] {
			seen[t] = true
			offers = append(offers, string(t))
		}
	}

	return &models.Unit{
		ID:           id,
		MediaID:      mediaID,
		AvailableFor: offers,
		SalePrice:    in.SalePrice,
		RentalPrice:  in.RentalPrice,
	}
}

// UnitService handles the units of a media. Every operation is scoped to the parent media.
type UnitService struct {
	repo   store.Repository
	logger *zap.Logger
}

// NewUnitService creates a new unit service
func NewUnitService(repo store.Repository) *UnitService {
	return &UnitService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// parent fails with NotFound unless the media exists and is not archived
func (s *UnitService) parent(ctx context.Context, repo store.Repository, mediaID int64) error {
	_, err := repo.GetMedia(ctx, mediaID)
	return translate(store.Medias, mediaID, err)
}

func (s *UnitService) GetAll(ctx context.Context, mediaID int64, p models.ListParams) (*models.Results[models.Unit], error) {
	ctx, span := util.StartSpan(ctx, "UnitService.GetAll")
	defer span.End()

	if err := s.parent(ctx, s.repo, mediaID); err != nil {
		return nil, err
	}

	units, total, err := s.repo.ListUnits(ctx, mediaID, p)
	if err != nil {
		return nil, err
	}
	return results(units, total), nil
}

func (s *UnitService) GetOne(ctx context.Context, mediaID, id int64) (*models.Unit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.GetOne")
	defer span.End()

	if err := s.parent(ctx, s.repo, mediaID); err != nil {
		return nil, err
	}

	unit, err := s.repo.GetUnit(ctx, mediaID, id)
	if err != nil {
		return nil, translate(store.Units, id, err)
	}
	return unit, nil
}

func (s *UnitService) Create(ctx context.Context, mediaID int64, in *UnitInput) (*models.Unit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.Create")
	defer span.End()

	unit := in.unit(mediaID, 0)
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		if err := s.parent(ctx, tx, mediaID); err != nil {
			return err
		}
		return translate(store.Units, nil, tx.CreateUnit(ctx, unit))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Unit created",
		zap.Int64("media_id", mediaID),
		zap.Int64("unit_id", unit.ID))
	return unit, nil
}

func (s *UnitService) Update(ctx context.Context, mediaID, id int64, in *UnitInput) (*models.Unit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.Update")
	defer span.End()

	unit := in.unit(mediaID, id)
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		if err := s.parent(ctx, tx, mediaID); err != nil {
			return err
		}
		return translate(store.Units, id, tx.UpdateUnit(ctx, unit))
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// Destroy archives the unit
func (s *UnitService) Destroy(ctx context.Context, mediaID, id int64) error {
	ctx, span := util.StartSpan(ctx, "UnitService.Destroy")
	defer span.End()

	return s.repo.InTx(ctx, func(tx store.Repository) error {
		if err := s.parent(ctx, tx, mediaID); err != nil {
			return err
		}
		if _, err := tx.GetUnit(ctx, mediaID, id); err != nil {
			return translate(store.Units, id, err)
		}
		return translate(store.Units, id, tx.Archive(ctx, store.Units, id))
	})
}
