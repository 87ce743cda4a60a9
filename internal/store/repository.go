package store

import (
	"context"
	"time"

	"rental-service/internal/models"
)

// Repository is the persistence port every service is built on. Store (postgres)
// and MemoryStore implement it.
type Repository interface {
	CustomerRepository
	GenreRepository
	MediaRepository
	UnitRepository
	NegotiationRepository

	// InTx runs fn against a transactional view of the repository. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Nested calls join the outer transaction.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Archive soft deletes a record of an archivable entity. It returns
	// ErrNotFound when the record is missing or already archived.
	Archive(ctx context.Context, e Entity, id int64) error

	Ping(ctx context.Context) error
}

type CustomerRepository interface {
	ListCustomers(ctx context.Context, p models.ListParams) ([]models.Customer, int64, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomer(ctx context.Context, c *models.Customer) error
}

type GenreRepository interface {
	ListGenres(ctx context.Context, p models.ListParams) ([]models.Genre, int64, error)
	GetGenre(ctx context.Context, id int64) (*models.Genre, error)
	CreateGenre(ctx context.Context, g *models.Genre) error
	UpdateGenre(ctx context.Context, g *models.Genre) error
	DeleteGenre(ctx context.Context, id int64) error
}

type MediaRepository interface {
	ListMedias(ctx context.Context, p models.ListParams) ([]models.Media, int64, error)
	GetMedia(ctx context.Context, id int64) (*models.Media, error)
	// CreateMedia inserts m and links it to genreIDs.
	CreateMedia(ctx context.Context, m *models.Media, genreIDs []int64) error
	// UpdateMedia replaces the editable fields of m. A nil genreIDs keeps the
	// current genre links, any other value replaces them.
	UpdateMedia(ctx context.Context, m *models.Media, genreIDs []int64) error
	// SearchMedias returns unarchived media matching p with units and genres hydrated.
	SearchMedias(ctx context.Context, p models.SearchParams) ([]models.Media, int64, error)
}

type UnitRepository interface {
	ListUnits(ctx context.Context, mediaID int64, p models.ListParams) ([]models.Unit, int64, error)
	GetUnit(ctx context.Context, mediaID, id int64) (*models.Unit, error)
	// GetUnitsByIDs returns the units that exist among ids, archived ones included.
	GetUnitsByIDs(ctx context.Context, ids []int64) ([]models.Unit, error)
	CreateUnit(ctx context.Context, u *models.Unit) error
	// UpdateUnit never changes Available.
	UpdateUnit(ctx context.Context, u *models.Unit) error
	// ReserveUnit flips an available, unarchived unit to unavailable. It
	// reports false when no row matched.
	ReserveUnit(ctx context.Context, id int64) (bool, error)
	ReleaseUnit(ctx context.Context, id int64) error
}

type NegotiationRepository interface {
	ListNegotiations(ctx context.Context, p models.ListParams) ([]models.Negotiation, int64, error)
	GetNegotiation(ctx context.Context, id int64) (*models.Negotiation, error)
	// LockNegotiation is GetNegotiation holding a row lock until the
	// surrounding transaction ends. Outside InTx the lock is released at once.
	LockNegotiation(ctx context.Context, id int64) (*models.Negotiation, error)
	CreateNegotiation(ctx context.Context, n *models.Negotiation, unitIDs []int64) error
	// MarkNegotiationDelivered stamps an unarchived, undelivered negotiation.
	// It returns ErrNotFound when no such row exists.
	MarkNegotiationDelivered(ctx context.Context, id int64, at time.Time) error

	// RecordNegotiationEvent stores e unless its event id is already known.
	// It reports whether a row was written.
	RecordNegotiationEvent(ctx context.Context, e *models.NegotiationHistoryEntry) (bool, error)
	ListNegotiationEvents(ctx context.Context, negotiationID int64) ([]models.NegotiationHistoryEntry, error)
}

// Entity describes a table and whether its rows carry the archived flag
type Entity struct {
	Name       string
	Table      string
	Archivable bool
}

var (
	Customers    = Entity{Name: "customer", Table: "customers", Archivable: true}
	Genres       = Entity{Name: "genre", Table: "genres"}
	Medias       = Entity{Name: "media", Table: "medias", Archivable: true}
	Units        = Entity{Name: "unit", Table: "units", Archivable: true}
	Negotiations = Entity{Name: "negotiation", Table: "negotiations", Archivable: true}
)

// Visible is the predicate hiding archived rows. alias qualifies the column
// when the table is aliased in the query.
func (e Entity) Visible(alias string) string {
	if !e.Archivable {
		return "TRUE"
	}
	if alias != "" {
		return "NOT " + alias + ".archived"
	}
	return "NOT archived"
}

// UniqueIDs drops repeated ids and keeps the first occurrence order
func UniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
