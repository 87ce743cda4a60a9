package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// MediaType classifies a media title
type MediaType string

const (
	MediaTypeMovie MediaType = "MOVIE"
	MediaTypeSerie MediaType = "SERIE"
	MediaTypeBook  MediaType = "BOOK"
)

// Valid reports whether t is a known media type
func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeMovie, MediaTypeSerie, MediaTypeBook:
		return true
	}
	return false
}

// NegotiationType is the kind of transaction a unit can take part in
type NegotiationType string

const (
	NegotiationTypeRent NegotiationType = "RENT"
	NegotiationTypeSale NegotiationType = "SALE"
)

// Valid reports whether t is a known negotiation type
func (t NegotiationType) Valid() bool {
	return t == NegotiationTypeRent || t == NegotiationTypeSale
}

// Archivable is implemented by records that are soft deleted through an archived flag
type Archivable interface {
	IsArchived() bool
}

// Customer represents a person renting or buying units
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	Email     string    `db:"email" json:"email"`
	Archived  bool      `db:"archived" json:"archived"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (c Customer) IsArchived() bool { return c.Archived }

// Genre groups media titles. Genres are hard deleted.
type Genre struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Media is a title (movie, serie or book) owning rentable or sellable units
type Media struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Subtitle    *string   `db:"subtitle" json:"subtitle"`
	AuthorName  *string   `db:"author_name" json:"authorName"`
	Description *string   `db:"description" json:"description"`
	ReleaseYear *int      `db:"release_year" json:"releaseYear"`
	MediaType   MediaType `db:"media_type" json:"mediaType"`
	Archived    bool      `db:"archived" json:"archived"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	Genres []Genre `db:"-" json:"genres"`
	Units  []Unit  `db:"-" json:"units,omitempty"`
}

func (m Media) IsArchived() bool { return m.Archived }

// Unit is a physical copy of a media title
type Unit struct {
	ID           int64               `db:"id" json:"id"`
	MediaID      int64               `db:"media_id" json:"mediaId"`
	Available    bool                `db:"available" json:"available"`
	AvailableFor pq.StringArray      `db:"available_for" json:"availableFor"`
	SalePrice    decimal.NullDecimal `db:"sale_price" json:"salePrice"`
	RentalPrice  decimal.NullDecimal `db:"rental_price" json:"rentalPrice"`
	Archived     bool                `db:"archived" json:"archived"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updatedAt"`
}

func (u Unit) IsArchived() bool { return u.Archived }

// Offers reports whether the unit can take part in a negotiation of type t
func (u Unit) Offers(t NegotiationType) bool {
	for _, v := range u.AvailableFor {
		if v == string(t) {
			return true
		}
	}
	return false
}

// Negotiation is a rent or sale transaction over one or more units
type Negotiation struct {
	ID                  int64               `db:"id" json:"id"`
	CustomerID          int64               `db:"customer_id" json:"customerId"`
	NegotiationType     NegotiationType     `db:"negotiation_type" json:"negotiationType"`
	TotalPrice          decimal.NullDecimal `db:"total_price" json:"totalPrice"`
	ScheduledDeliveryAt time.Time           `db:"scheduled_delivery_at" json:"scheduledDeliveryAt"`
	DeliveredAt         *time.Time          `db:"delivered_at" json:"deliveredAt"`
	Archived            bool                `db:"archived" json:"archived"`
	CreatedAt           time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updatedAt"`

	Customer *Customer `db:"-" json:"customer,omitempty"`
	Units    []Unit    `db:"-" json:"units"`
}

func (n Negotiation) IsArchived() bool { return n.Archived }

// Delivered reports whether the negotiation's units were already handed back
func (n Negotiation) Delivered() bool { return n.DeliveredAt != nil }

// UnitIDs returns the ids of the hydrated units
func (n Negotiation) UnitIDs() []int64 {
	ids := make([]int64, 0, len(n.Units))
	for _, u := range n.Units {
		ids = append(ids, u.ID)
	}
	return ids
}

// ListParams carries pagination for list endpoints
type ListParams struct {
	Offset int
	Limit  int
}

// SearchParams filters the media search
type SearchParams struct {
	ListParams
	Title        string
	MediaType    MediaType
	AvailableFor NegotiationType
}

// Results is the envelope returned by list operations
type Results[T any] struct {
	Total int64 `json:"total"`
	Data  []T   `json:"data"`
}
