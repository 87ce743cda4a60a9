package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rental-service/config"
	"rental-service/internal/models"
	"rental-service/internal/service"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const lookupLimit = 1000

type seedUnit struct {
	offers      []models.NegotiationType
	salePrice   string
	rentalPrice string
}

type seedMedia struct {
	input  service.MediaInput
	genres []string
	units  []seedUnit
}

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	if cfg.Database.Driver == "memory" {
		logger.Fatal("Seeding needs a persistent database, set DATABASE_DRIVER=postgres")
	}

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	s := &seeder{
		repo:         db,
		genres:       service.NewGenreService(db),
		medias:       service.NewMediaService(db),
		units:        service.NewUnitService(db),
		customers:    service.NewCustomerService(db),
		negotiations: service.NewNegotiationService(db, service.NewUnitGate(), nil, nil, service.NegotiationOptions{}),
		logger:       logger,
	}
	if err := s.run(ctx); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seeding finished")
}

type seeder struct {
	repo         store.Repository
	genres       *service.GenreService
	medias       *service.MediaService
	units        *service.UnitService
	customers    *service.CustomerService
	negotiations *service.NegotiationService
	logger       *zap.Logger
}

func (s *seeder) run(ctx context.Context) error {
	genreIDs := map[string]int64{}
	for _, title := range []string{"Science fiction", "Adventure"} {
		id, err := s.genre(ctx, title)
		if err != nil {
			return err
		}
		genreIDs[title] = id
	}

	catalog := []seedMedia{
		{
			input:  service.MediaInput{Title: "Star Wars V", Subtitle: strPtr("The Empire Strikes Back"), ReleaseYear: intPtr(1980), MediaType: models.MediaTypeMovie},
			genres: []string{"Science fiction", "Adventure"},
			units:  []seedUnit{
				{offers: []models.NegotiationType{models.NegotiationTypeRent}, rentalPrice: "10.00"},
				{offers: []models.NegotiationType{models.NegotiationTypeRent}, rentalPrice: "10.00"},
				{offers: []models.NegotiationType{models.NegotiationTypeRent}, rentalPrice: "10.00"},
			},
		},
		{
			input:  service.MediaInput{Title: "The Lord of the Rings", AuthorName: strPtr("J. R. R. Tolkien"), ReleaseYear: intPtr(1954), MediaType: models.MediaTypeBook},
			genres: []string{"Adventure"},
			units:  []seedUnit{
				{offers: []models.NegotiationType{models.NegotiationTypeSale}, salePrice: "56.90"},
				{offers: []models.NegotiationType{models.NegotiationTypeSale}, salePrice: "56.90"},
			},
		},
		{
			input:  service.MediaInput{Title: "Game of Thrones Season 1", ReleaseYear: intPtr(2011), MediaType: models.MediaTypeSerie},
			genres: []string{"Adventure"},
			units:  []seedUnit{
				{offers: []models.NegotiationType{models.NegotiationTypeSale, models.NegotiationTypeRent}, salePrice: "120.00", rentalPrice: "25.00"},
				{offers: []models.NegotiationType{models.NegotiationTypeRent}, rentalPrice: "25.00"},
			},
		},
	}

	var rentable []int64
	for _, m := range catalog {
		for _, g := range m.genres {
			m.input.Genres = append(m.input.Genres, genreIDs[g])
		}
		unitIDs, err := s.media(ctx, m)
		if err != nil {
			return err
		}
		if m.input.Title == "Star Wars V" && len(unitIDs) > 0 {
			rentable = unitIDs[:1]
		}
	}

	customerID, created, err := s.customer(ctx, service.CustomerInput{
		FirstName: "Callie",
		LastName:  "Stewart",
		Email:     "vel@protonmail.edu",
	})
	if err != nil {
		return err
	}
	if !created || len(rentable) == 0 {
		return nil
	}

	negotiation, err := s.negotiations.Create(ctx, &service.CreateNegotiationRequest{
		CustomerID:          customerID,
		NegotiationType:     models.NegotiationTypeRent,
		TotalPrice:          decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
		ScheduledDeliveryAt: time.Now().AddDate(0, 0, 3),
		Units:               rentable,
	})
	if err != nil {
		return fmt.Errorf("failed to seed negotiation: %w", err)
	}
	s.logger.Info("Seeded negotiation", zap.Int64("negotiation_id", negotiation.ID))
	return nil
}

// genre returns the id of the genre titled title, creating it when missing
func (s *seeder) genre(ctx context.Context, title string) (int64, error) {
	genres, _, err := s.repo.ListGenres(ctx, models.ListParams{Limit: lookupLimit})
	if err != nil {
		return 0, err
	}
	for _, g := range genres {
		if strings.EqualFold(g.Title, title) {
			return g.ID, nil
		}
	}

	g, err := s.genres.Create(ctx, &service.GenreInput{Title: title})
	if err != nil {
		return 0, fmt.Errorf("failed to seed genre %q: %w", title, err)
	}
	s.logger.Info("Seeded genre", zap.String("title", title), zap.Int64("genre_id", g.ID))
	return g.ID, nil
}

// media creates m with its units unless a media with the same title and type
// exists. It returns the ids of the units it created.
func (s *seeder) media(ctx context.Context, m seedMedia) ([]int64, error) {
	existing, _, err := s.repo.SearchMedias(ctx, models.SearchParams{
		ListParams: models.ListParams{Limit: lookupLimit},
		Title:      m.input.Title,
		MediaType:  m.input.MediaType,
	})
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Title == m.input.Title {
			s.logger.Info("Media already seeded", zap.String("title", e.Title))
			return nil, nil
		}
	}

	media, err := s.medias.Create(ctx, &m.input)
	if err != nil {
		return nil, fmt.Errorf("failed to seed media %q: %w", m.input.Title, err)
	}

	ids := make([]int64, 0, len(m.units))
	for _, u := range m.units {
		unit, err := s.units.Create(ctx, media.ID, &service.UnitInput{
			AvailableFor: u.offers,
			SalePrice:    price(u.salePrice),
			RentalPrice:  price(u.rentalPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed unit of %q: %w", m.input.Title, err)
		}
		ids = append(ids, unit.ID)
	}

	s.logger.Info("Seeded media",
		zap.String("title", media.Title),
		zap.Int64("media_id", media.ID),
		zap.Int("units", len(ids)))
	return ids, nil
}

// customer returns the id of the customer with in.Email and whether it was created now
func (s *seeder) customer(ctx context.Context, in service.CustomerInput) (int64, bool, error) {
	customers, _, err := s.repo.ListCustomers(ctx, models.ListParams{Limit: lookupLimit})
	if err != nil {
		return 0, false, err
	}
	for _, c := range customers {
		if strings.EqualFold(c.Email, in.Email) {
			return c.ID, false, nil
		}
	}

	c, err := s.customers.Create(ctx, &in)
	if err != nil {
		return 0, false, fmt.Errorf("failed to seed customer %q: %w", in.Email, err)
	}
	s.logger.Info("Seeded customer", zap.String("email", c.Email), zap.Int64("customer_id", c.ID))
	return c.ID, true, nil
}

func price(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
