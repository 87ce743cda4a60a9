package store

import (
	"context"
	"fmt"

	"rental-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const genreColumns = "id, title, created_at, updated_at"

// ListGenres returns a page of genres
func (s *Store) ListGenres(ctx context.Context, p models.ListParams) ([]models.Genre, int64, error) {
	return selectPage[models.Genre](ctx, s.q, "genres", genreColumns, "id", &filter{}, p)
}

// GetGenre retrieves a genre by ID
func (s *Store) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	var genre models.Genre
	query := s.q.Rebind("SELECT " + genreColumns + " FROM genres WHERE id = ?")
	if err := sqlx.GetContext(ctx, s.q, &genre, query, id); err != nil {
		return nil, translateError(err)
	}
	return &genre, nil
}

// CreateGenre inserts a genre
func (s *Store) CreateGenre(ctx context.Context, g *models.Genre) error {
	query := s.q.Rebind("INSERT INTO genres (title) VALUES (?) RETURNING id, created_at, updated_at")
	if err := sqlx.GetContext(ctx, s.q, g, query, g.Title); err != nil {
		return fmt.Errorf("failed to create genre: %w", translateError(err))
	}
	return nil
}

// UpdateGenre renames a genre
func (s *Store) UpdateGenre(ctx context.Context, g *models.Genre) error {
	query := s.q.Rebind("UPDATE genres SET title = ?, updated_at = NOW() WHERE id = ? RETURNING created_at, updated_at")
	if err := sqlx.GetContext(ctx, s.q, g, query, g.Title, g.ID); err != nil {
		return fmt.Errorf("failed to update genre: %w", translateError(err))
	}
	return nil
}

// DeleteGenre removes a genre and its media links
func (s *Store) DeleteGenre(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, s.q.Rebind("DELETE FROM genres WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", translateError(err))
	}
	return expectOne(res)
}
