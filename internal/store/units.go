package store

import (
	"context"
	"fmt"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const unitColumns = "id, media_id, available, available_for, sale_price, rental_price, archived, created_at, updated_at"

// ListUnits returns a page of unarchived units of a media
func (s *Store) ListUnits(ctx context.Context, mediaID int64, p models.ListParams) ([]models.Unit, int64, error) {
	return selectPage[models.Unit](ctx, s.q, "units", unitColumns, "id",
		where(Units.Visible("")).and("media_id = ?", mediaID), p)
}

// GetUnit retrieves an unarchived unit belonging to mediaID
func (s *Store) GetUnit(ctx context.Context, mediaID, id int64) (*models.Unit, error) {
	var unit models.Unit
	query := s.q.Rebind("SELECT " + unitColumns + " FROM units WHERE id = ? AND media_id = ? AND " + Units.Visible(""))
	if err := sqlx.GetContext(ctx, s.q, &unit, query, id, mediaID); err != nil {
		return nil, translateError(err)
	}
	return &unit, nil
}

// GetUnitsByIDs reads the current state of the given units
func (s *Store) GetUnitsByIDs(ctx context.Context, ids []int64) ([]models.Unit, error) {
	units, err := selectIn[models.Unit](ctx, s.q, "SELECT "+unitColumns+" FROM units WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get units: %w", err)
	}
	return units, nil
}

// CreateUnit inserts an available unit
func (s *Store) CreateUnit(ctx context.Context, u *models.Unit) error {
	query := s.q.Rebind(`
		INSERT INTO units (media_id, available_for, sale_price, rental_price)
		VALUES (?, ?, ?, ?)
		RETURNING id, available, archived, created_at, updated_at`)

	if err := sqlx.GetContext(ctx, s.q, u, query, u.MediaID, u.AvailableFor, u.SalePrice, u.RentalPrice); err != nil {
		return fmt.Errorf("failed to create unit: %w", translateError(err))
	}
	return nil
}

// UpdateUnit replaces the offer and prices of an unarchived unit
func (s *Store) UpdateUnit(ctx context.Context, u *models.Unit) error {
	query := s.q.Rebind(`
		UPDATE units SET available_for = ?, sale_price = ?, rental_price = ?, updated_at = NOW()
		WHERE id = ? AND media_id = ? AND NOT archived
		RETURNING available, archived, created_at, updated_at`)

	err := sqlx.GetContext(ctx, s.q, u, query, u.AvailableFor, u.SalePrice, u.RentalPrice, u.ID, u.MediaID)
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", translateError(err))
	}
	return nil
}

// ReserveUnit is a conditional write: only an available, unarchived unit is taken
func (s *Store) ReserveUnit(ctx context.Context, id int64) (bool, error) {
	query := s.q.Rebind(`
		UPDATE units SET available = FALSE, updated_at = NOW()
		WHERE id = ? AND available AND NOT archived`)

	res, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to reserve unit %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseUnit makes a unit available again
func (s *Store) ReleaseUnit(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx,
		s.q.Rebind("UPDATE units SET available = TRUE, updated_at = NOW() WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to release unit %d: %w", id, err)
	}
	return expectOne(res)
}
