package store

import (
	"context"
	"fmt"
	"time"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const negotiationColumns = "id, customer_id, negotiation_type, total_price, scheduled_delivery_at, delivered_at, archived, created_at, updated_at"

type negotiationUnit struct {
	NegotiationID int64 `db:"negotiation_id"`
	models.Unit
}

// ListNegotiations returns a page of unarchived negotiations with customer and units
func (s *Store) ListNegotiations(ctx context.Context, p models.ListParams) ([]models.Negotiation, int64, error) {
	negotiations, total, err := selectPage[models.Negotiation](ctx, s.q, "negotiations", negotiationColumns, "id",
		where(Negotiations.Visible("")), p)
	if err != nil {
		return nil, 0, err
	}
	if err := s.hydrateNegotiations(ctx, negotiations); err != nil {
		return nil, 0, err
	}
	return negotiations, total, nil
}

// GetNegotiation retrieves an unarchived negotiation with customer and units
func (s *Store) GetNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	return s.getNegotiation(ctx, id, "")
}

// LockNegotiation retrieves an unarchived negotiation and locks its row
func (s *Store) LockNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	return s.getNegotiation(ctx, id, " FOR UPDATE")
}

func (s *Store) getNegotiation(ctx context.Context, id int64, suffix string) (*models.Negotiation, error) {
	var negotiation models.Negotiation
	query := s.q.Rebind("SELECT " + negotiationColumns + " FROM negotiations WHERE id = ? AND " + Negotiations.Visible("") + suffix)
	if err := sqlx.GetContext(ctx, s.q, &negotiation, query, id); err != nil {
		return nil, translateError(err)
	}

	negotiations := []models.Negotiation{negotiation}
	if err := s.hydrateNegotiations(ctx, negotiations); err != nil {
		return nil, err
	}
	return &negotiations[0], nil
}

// CreateNegotiation inserts a negotiation and links its units
func (s *Store) CreateNegotiation(ctx context.Context, n *models.Negotiation, unitIDs []int64) error {
	query := s.q.Rebind(`
		INSERT INTO negotiations (customer_id, negotiation_type, total_price, scheduled_delivery_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, delivered_at, archived, created_at, updated_at`)

	err := sqlx.GetContext(ctx, s.q, n, query, n.CustomerID, n.NegotiationType, n.TotalPrice, n.ScheduledDeliveryAt)
	if err != nil {
		return fmt.Errorf("failed to create negotiation: %w", translateError(err))
	}

	link := s.q.Rebind(`
		INSERT INTO negotiation_units (negotiation_id, unit_id)
		SELECT ?, unnest(?::BIGINT[])`)
	if _, err := s.q.ExecContext(ctx, link, n.ID, pq.Int64Array(unitIDs)); err != nil {
		return fmt.Errorf("failed to link units: %w", translateError(err))
	}
	return nil
}

// MarkNegotiationDelivered sets delivered_at on an unarchived, undelivered negotiation
func (s *Store) MarkNegotiationDelivered(ctx context.Context, id int64, at time.Time) error {
	query := s.q.Rebind(`
		UPDATE negotiations SET delivered_at = ?, updated_at = NOW()
		WHERE id = ? AND NOT archived AND delivered_at IS NULL`)

	res, err := s.q.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to deliver negotiation: %w", err)
	}
	return expectOne(res)
}

func (s *Store) hydrateNegotiations(ctx context.Context, negotiations []models.Negotiation) error {
	if len(negotiations) == 0 {
		return nil
	}

	ids := make([]int64, len(negotiations))
	customerIDs := make([]int64, 0, len(negotiations))
	seen := make(map[int64]bool)
	for i, n := range negotiations {
		ids[i] = n.ID
		if !seen[n.CustomerID] {
			seen[n.CustomerID] = true
			customerIDs = append(customerIDs, n.CustomerID)
		}
	}

	customers, err := selectIn[models.Customer](ctx, s.q,
		"SELECT "+customerColumns+" FROM customers WHERE id IN (?)", customerIDs)
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}
	byID := make(map[int64]models.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	links, err := selectIn[negotiationUnit](ctx, s.q, `
		SELECT nu.negotiation_id, u.id, u.media_id, u.available, u.available_for, u.sale_price,
		       u.rental_price, u.archived, u.created_at, u.updated_at
		FROM negotiation_units nu JOIN units u ON u.id = nu.unit_id
		WHERE nu.negotiation_id IN (?)
		ORDER BY u.id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load negotiation units: %w", err)
	}
	units := make(map[int64][]models.Unit, len(negotiations))
	for _, l := range links {
		units[l.NegotiationID] = append(units[l.NegotiationID], l.Unit)
	}

	for i := range negotiations {
		if c, ok := byID[negotiations[i].CustomerID]; ok {
			customer := c
			negotiations[i].Customer = &customer
		}
		negotiations[i].Units = units[negotiations[i].ID]
		if negotiations[i].Units == nil {
			negotiations[i].Units = []models.Unit{}
		}
	}
	return nil
}

// RecordNegotiationEvent writes e once per event id
func (s *Store) RecordNegotiationEvent(ctx context.Context, e *models.NegotiationHistoryEntry) (bool, error) {
	query := s.q.Rebind(`
		INSERT INTO negotiation_events (event_id, event_type, negotiation_id, customer_id, unit_ids, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`)

	res, err := s.q.ExecContext(ctx, query,
		e.EventID, e.EventType, e.NegotiationID, e.CustomerID, e.UnitIDs, e.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("failed to record negotiation event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListNegotiationEvents returns the recorded history of a negotiation
func (s *Store) ListNegotiationEvents(ctx context.Context, negotiationID int64) ([]models.NegotiationHistoryEntry, error) {
	events := []models.NegotiationHistoryEntry{}
	query := s.q.Rebind(`
		SELECT event_id, event_type, negotiation_id, customer_id, unit_ids, occurred_at, recorded_at
		FROM negotiation_events WHERE negotiation_id = ?
		ORDER BY occurred_at, event_id`)
	if err := sqlx.SelectContext(ctx, s.q, &events, query, negotiationID); err != nil {
		return nil, fmt.Errorf("failed to list negotiation events: %w", err)
	}
	return events, nil
}
