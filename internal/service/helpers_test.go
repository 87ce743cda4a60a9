package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rental-service/internal/models"
	"rental-service/internal/store"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo     *store.MemoryStore
	customer *models.Customer
	media    *models.Media
	units    []*models.Unit
}

// newFixture seeds a customer and a movie with n rentable units
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryStore()

	customer := &models.Customer{FirstName: "Callie", LastName: "Stewart", Email: "vel@protonmail.edu"}
	require.NoError(t, repo.CreateCustomer(ctx, customer))

	media := &models.Media{Title: "Star Wars V", MediaType: models.MediaTypeMovie}
	require.NoError(t, repo.CreateMedia(ctx, media, nil))

	f := &fixture{repo: repo, customer: customer, media: media}
	for i := 0; i < n; i++ {
		u := &models.Unit{MediaID: media.ID, AvailableFor: []string{"RENT"}}
		require.NoError(t, repo.CreateUnit(ctx, u))
		f.units = append(f.units, u)
	}
	return f
}

func (f *fixture) unit(t *testing.T, id int64) *models.Unit {
	t.Helper()
	u, err := f.repo.GetUnit(context.Background(), f.media.ID, id)
	require.NoError(t, err)
	return u
}

func (f *fixture) request(unitIDs ...int64) *CreateNegotiationRequest {
	return &CreateNegotiationRequest{
		CustomerID:          f.customer.ID,
		NegotiationType:     models.NegotiationTypeRent,
		ScheduledDeliveryAt: time.Now().Add(72 * time.Hour),
		Units:               unitIDs,
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.NegotiationEvent
	err    error
}

func (p *fakePublisher) PublishNegotiationEvent(ctx context.Context, event *models.NegotiationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// fakeIdempotency fails like a network store once the caller's context is done
type fakeIdempotency struct {
	mu          sync.Mutex
	values      map[string]string
	claimErr    error
	claimTTL    time.Duration
	completeTTL time.Duration
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{values: map[string]string{}}
}

func (f *fakeIdempotency) ClaimIdempotencyKey(ctx context.Context, key string, pendingTTL time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return "", false, f.claimErr
	}
	if v, ok := f.values[key]; ok {
		return v, false, nil
	}
	f.values[key] = idempotencyPending
	f.claimTTL = pendingTTL
	return "", true, nil
}

func (f *fakeIdempotency) CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.completeTTL = ttl
	return nil
}

func (f *fakeIdempotency) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeIdempotency) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// cancellingPublisher cancels the request context once the negotiation is committed
type cancellingPublisher struct {
	cancel context.CancelFunc
}

func (p *cancellingPublisher) PublishNegotiationEvent(ctx context.Context, event *models.NegotiationEvent) error {
	p.cancel()
	return nil
}

// staleReads serves negotiations from a snapshot taken before a concurrent
// transaction changed them
type staleReads struct {
	store.Repository
	stale map[int64]models.Negotiation
}

func (s *staleReads) InTx(ctx context.Context, fn func(tx store.Repository) error) error {
	return s.Repository.InTx(ctx, func(tx store.Repository) error {
		return fn(&staleReads{Repository: tx, stale: s.stale})
	})
}

func (s *staleReads) LockNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	if n, ok := s.stale[id]; ok {
		return &n, nil
	}
	return s.Repository.LockNegotiation(ctx, id)
}

// flakyUnits refuses to reserve one unit as if a concurrent request took it first
type flakyUnits struct {
	store.UnitRepository
	taken int64
	err   error
}

func (f *flakyUnits) ReserveUnit(ctx context.Context, id int64) (bool, error) {
	if id == f.taken {
		return false, f.err
	}
	return f.UnitRepository.ReserveUnit(ctx, id)
}

var errBroker = errors.New("broker unavailable")
