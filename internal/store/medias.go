package store

import (
	"context"
	"fmt"
	"strings"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const mediaColumns = "m.id, m.title, m.subtitle, m.author_name, m.description, m.release_year, m.media_type, m.archived, m.created_at, m.updated_at"

type mediaGenre struct {
	MediaID int64 `db:"media_id"`
	models.Genre
}

// ListMedias returns a page of unarchived media with their genres
func (s *Store) ListMedias(ctx context.Context, p models.ListParams) ([]models.Media, int64, error) {
	medias, total, err := selectPage[models.Media](ctx, s.q, "medias m", mediaColumns, "m.id",
		where(Medias.Visible("m")), p)
	if err != nil {
		return nil, 0, err
	}
	if err := s.hydrateGenres(ctx, medias); err != nil {
		return nil, 0, err
	}
	return medias, total, nil
}

// GetMedia retrieves an unarchived media with its genres
func (s *Store) GetMedia(ctx context.Context, id int64) (*models.Media, error) {
	var media models.Media
	query := s.q.Rebind("SELECT " + mediaColumns + " FROM medias m WHERE m.id = ? AND " + Medias.Visible("m"))
	if err := sqlx.GetContext(ctx, s.q, &media, query, id); err != nil {
		return nil, translateError(err)
	}

	medias := []models.Media{media}
	if err := s.hydrateGenres(ctx, medias); err != nil {
		return nil, err
	}
	return &medias[0], nil
}

// CreateMedia inserts a media and links its genres
func (s *Store) CreateMedia(ctx context.Context, m *models.Media, genreIDs []int64) error {
	query := s.q.Rebind(`
		INSERT INTO medias (title, subtitle, author_name, description, release_year, media_type)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, archived, created_at, updated_at`)

	err := sqlx.GetContext(ctx, s.q, m, query,
		m.Title, m.Subtitle, m.AuthorName, m.Description, m.ReleaseYear, m.MediaType)
	if err != nil {
		return fmt.Errorf("failed to create media: %w", translateError(err))
	}

	return s.linkGenres(ctx, m.ID, genreIDs)
}

// UpdateMedia replaces the editable fields of an unarchived media
func (s *Store) UpdateMedia(ctx context.Context, m *models.Media, genreIDs []int64) error {
	query := s.q.Rebind(`
		UPDATE medias
		SET title = ?, subtitle = ?, author_name = ?, description = ?, release_year = ?, media_type = ?, updated_at = NOW()
		WHERE id = ? AND NOT archived
		RETURNING archived, created_at, updated_at`)

	err := sqlx.GetContext(ctx, s.q, m, query,
		m.Title, m.Subtitle, m.AuthorName, m.Description, m.ReleaseYear, m.MediaType, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", translateError(err))
	}

	if genreIDs == nil {
		return nil
	}
	if _, err := s.q.ExecContext(ctx, s.q.Rebind("DELETE FROM media_genres WHERE media_id = ?"), m.ID); err != nil {
		return fmt.Errorf("failed to unlink genres: %w", err)
	}
	return s.linkGenres(ctx, m.ID, genreIDs)
}

func (s *Store) linkGenres(ctx context.Context, mediaID int64, genreIDs []int64) error {
	for _, genreID := range genreIDs {
		query := s.q.Rebind("INSERT INTO media_genres (media_id, genre_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
		if _, err := s.q.ExecContext(ctx, query, mediaID, genreID); err != nil {
			return fmt.Errorf("failed to link genre %d: %w", genreID, translateError(err))
		}
	}
	return nil
}

func (s *Store) hydrateGenres(ctx context.Context, medias []models.Media) error {
	ids := make([]int64, len(medias))
	for i := range medias {
		ids[i] = medias[i].ID
		medias[i].Genres = []models.Genre{}
	}

	links, err := selectIn[mediaGenre](ctx, s.q, `
		SELECT mg.media_id, g.id, g.title, g.created_at, g.updated_at
		FROM media_genres mg JOIN genres g ON g.id = mg.genre_id
		WHERE mg.media_id IN (?)
		ORDER BY g.id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}

	byMedia := make(map[int64][]models.Genre, len(medias))
	for _, l := range links {
		byMedia[l.MediaID] = append(byMedia[l.MediaID], l.Genre)
	}
	for i := range medias {
		if genres, ok := byMedia[medias[i].ID]; ok {
			medias[i].Genres = genres
		}
	}
	return nil
}

func (s *Store) hydrateUnits(ctx context.Context, medias []models.Media) error {
	ids := make([]int64, len(medias))
	for i := range medias {
		ids[i] = medias[i].ID
		medias[i].Units = []models.Unit{}
	}

	units, err := selectIn[models.Unit](ctx, s.q,
		"SELECT "+unitColumns+" FROM units WHERE media_id IN (?) AND NOT archived ORDER BY id", ids)
	if err != nil {
		return fmt.Errorf("failed to load units: %w", err)
	}

	byMedia := make(map[int64][]models.Unit, len(medias))
	for _, u := range units {
		byMedia[u.MediaID] = append(byMedia[u.MediaID], u)
	}
	for i := range medias {
		if units, ok := byMedia[medias[i].ID]; ok {
			medias[i].Units = units
		}
	}
	return nil
}

// SearchMedias filters unarchived media by title, type and the negotiation
// type every unarchived unit offers
func (s *Store) SearchMedias(ctx context.Context, p models.SearchParams) ([]models.Media, int64, error) {
	f := where(Medias.Visible("m"))
	if p.Title != "" {
		f.and("m.title ILIKE ?", "%"+escapeLike(p.Title)+"%")
	}
	if p.MediaType != "" {
		f.and("m.media_type = ?", p.MediaType)
	}
	if p.AvailableFor != "" {
		f.and(`NOT EXISTS (
			SELECT 1 FROM units u
			WHERE u.media_id = m.id AND NOT u.archived AND NOT (? = ANY(u.available_for)))`,
			string(p.AvailableFor))
	}

	medias, total, err := selectPage[models.Media](ctx, s.q, "medias m", mediaColumns, "m.id", f, p.ListParams)
	if err != nil {
		return nil, 0, err
	}
	if err := s.hydrateUnits(ctx, medias); err != nil {
		return nil, 0, err
	}
	if err := s.hydrateGenres(ctx, medias); err != nil {
		return nil, 0, err
	}
	return medias, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
