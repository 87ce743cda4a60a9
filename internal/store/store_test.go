package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"rental-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL and applies the schema.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database (set TEST_DATABASE_URL)")
	}

	s, err := NewStore(url, 5)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// unique keeps records of repeated runs apart
func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestStoreCustomerConstraints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	email := unique("callie") + "@protonmail.edu"
	c := &models.Customer{FirstName: "Callie", LastName: "Stewart", Email: email}
	require.NoError(t, s.CreateCustomer(ctx, c))
	assert.NotZero(t, c.ID)

	err := s.CreateCustomer(ctx, &models.Customer{FirstName: "X", LastName: "Y", Email: email})
	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeUniqueViolation, ce.Code)
	assert.Equal(t, "customers_email_key", ce.Constraint)

	require.NoError(t, s.Archive(ctx, Customers, c.ID))
	_, err = s.GetCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreReserveUnitIsConditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := &models.Media{Title: unique("Star Wars V"), MediaType: models.MediaTypeMovie}
	require.NoError(t, s.CreateMedia(ctx, m, nil))

	u := &models.Unit{
		MediaID:      m.ID,
		AvailableFor: []string{"RENT"},
		RentalPrice:  decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
	}
	require.NoError(t, s.CreateUnit(ctx, u))
	assert.True(t, u.Available)

	ok, err := s.ReserveUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ReserveUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseUnit(ctx, u.ID))
	got, err := s.GetUnit(ctx, m.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.True(t, got.RentalPrice.Decimal.Equal(decimal.RequireFromString("10")))
}

func TestStoreNegotiationInTx(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &models.Customer{FirstName: "Callie", LastName: "Stewart", Email: unique("neg") + "@example.com"}
	require.NoError(t, s.CreateCustomer(ctx, c))
	m := &models.Media{Title: unique("The Lord of the Rings"), MediaType: models.MediaTypeBook}
	require.NoError(t, s.CreateMedia(ctx, m, nil))
	u := &models.Unit{MediaID: m.ID, AvailableFor: []string{"SALE"}}
	require.NoError(t, s.CreateUnit(ctx, u))

	n := &models.Negotiation{
		CustomerID:          c.ID,
		NegotiationType:     models.NegotiationTypeSale,
		ScheduledDeliveryAt: time.Now().Add(72 * time.Hour),
	}

	// A failing transaction leaves no trace.
	err := s.InTx(ctx, func(tx Repository) error {
		if err := tx.CreateNegotiation(ctx, n, []int64{u.ID}); err != nil {
			return err
		}
		if _, err := tx.ReserveUnit(ctx, u.ID); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)
	_, err = s.GetNegotiation(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.InTx(ctx, func(tx Repository) error {
		if err := tx.CreateNegotiation(ctx, n, []int64{u.ID}); err != nil {
			return err
		}
		_, err := tx.ReserveUnit(ctx, u.ID)
		return err
	})
	require.NoError(t, err)

	got, err := s.GetNegotiation(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Customer)
	assert.Equal(t, c.ID, got.Customer.ID)
	require.Len(t, got.Units, 1)
	assert.False(t, got.Units[0].Available)
}

func TestStoreLockNegotiationSerializesDelivery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &models.Customer{FirstName: "Callie", LastName: "Stewart", Email: unique("lock") + "@example.com"}
	require.NoError(t, s.CreateCustomer(ctx, c))
	m := &models.Media{Title: unique("Star Wars V"), MediaType: models.MediaTypeMovie}
	require.NoError(t, s.CreateMedia(ctx, m, nil))
	u := &models.Unit{MediaID: m.ID, AvailableFor: []string{"RENT"}}
	require.NoError(t, s.CreateUnit(ctx, u))
	n := &models.Negotiation{
		CustomerID:          c.ID,
		NegotiationType:     models.NegotiationTypeRent,
		ScheduledDeliveryAt: time.Now().Add(72 * time.Hour),
	}
	require.NoError(t, s.CreateNegotiation(ctx, n, []int64{u.ID}))

	seen := make(chan *models.Negotiation, 1)
	errs := make(chan error, 1)

	err := s.InTx(ctx, func(tx Repository) error {
		if _, err := tx.LockNegotiation(ctx, n.ID); err != nil {
			return err
		}

		go func() {
			errs <- s.InTx(ctx, func(tx Repository) error {
				got, err := tx.LockNegotiation(ctx, n.ID)
				if err != nil {
					return err
				}
				seen <- got
				return nil
			})
		}()

		select {
		case <-seen:
			return fmt.Errorf("second transaction read a locked negotiation")
		case <-time.After(200 * time.Millisecond):
		}
		return tx.MarkNegotiationDelivered(ctx, n.ID, time.Now())
	})
	require.NoError(t, err)

	require.NoError(t, <-errs)
	got := <-seen
	assert.True(t, got.Delivered())

	// A delivery stamp is written once.
	assert.ErrorIs(t, s.MarkNegotiationDelivered(ctx, n.ID, time.Now()), ErrNotFound)
}

func TestStoreSearchMedias(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	title := unique("Needle_%")
	m := &models.Media{Title: title, MediaType: models.MediaTypeSerie}
	require.NoError(t, s.CreateMedia(ctx, m, nil))
	require.NoError(t, s.CreateUnit(ctx, &models.Unit{MediaID: m.ID, AvailableFor: []string{"RENT", "SALE"}}))

	medias, total, err := s.SearchMedias(ctx, models.SearchParams{
		ListParams:   models.ListParams{Limit: 10},
		Title:        title,
		MediaType:    models.MediaTypeSerie,
		AvailableFor: models.NegotiationTypeRent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, medias, 1)
	assert.Len(t, medias[0].Units, 1)
	assert.NotNil(t, medias[0].Genres)
}

func TestStoreRecordNegotiationEventDedupes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := &models.NegotiationHistoryEntry{
		EventID:       unique("evt"),
		EventType:     models.EventTypeNegotiationCreated,
		NegotiationID: time.Now().UnixNano(),
		UnitIDs:       []int64{1, 2},
		OccurredAt:    time.Now(),
	}

	written, err := s.RecordNegotiationEvent(ctx, e)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = s.RecordNegotiationEvent(ctx, e)
	require.NoError(t, err)
	assert.False(t, written)

	events, err := s.ListNegotiationEvents(ctx, e.NegotiationID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []int64{1, 2}, []int64(events[0].UnitIDs))
}
