package service

import (
	"context"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"
)

// GenreInput is the body of genre create and update requests
type GenreInput struct {
	Title string `json:"title" binding:"required"`
}

// GenreService handles genres. Genres carry no archived flag and are deleted for real.
type GenreService struct {
	repo store.Repository
}

var _ CrudService[models.Genre, GenreInput] = (*GenreService)(nil)

func NewGenreService(repo store.Repository) *GenreService {
	return &GenreService{repo: repo}
}

func (s *GenreService) GetAll(ctx context.Context, p models.ListParams) (*models.Results[models.Genre], error) {
	ctx, span := util.StartSpan(ctx, "GenreService.GetAll")
	defer span.End()

	genres, total, err := s.repo.ListGenres(ctx, p)
	if err != nil {
		return nil, err
	}
	return results(genres, total), nil
}

func (s *GenreService) GetOne(ctx context.Context, id int64) (*models.Genre, error) {
	ctx, span := util.StartSpan(ctx, "GenreService.GetOne")
	defer span.End()

	genre, err := s.repo.GetGenre(ctx, id)
	if err != nil {
		return nil, translate(store.Genres, id, err)
	}
	return genre, nil
}

func (s *GenreService) Create(ctx context.Context, in *GenreInput) (*models.Genre, error) {
	ctx, span := util.StartSpan(ctx, "GenreService.Create")
	defer span.End()

	genre := &models.Genre{Title: in.Title}
	if err := s.repo.CreateGenre(ctx, genre); err != nil {
		return nil, translate(store.Genres, nil, err)
	}
	return genre, nil
}

func (s *GenreService) Update(ctx context.Context, id int64, in *GenreInput) (*models.Genre, error) {
	ctx, span := util.StartSpan(ctx, "GenreService.Update")
	defer span.End()

	genre := &models.Genre{ID: id, Title: in.Title}
	if err := s.repo.UpdateGenre(ctx, genre); err != nil {
		return nil, translate(store.Genres, id, err)
	}
	return genre, nil
}

func (s *GenreService) Destroy(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "GenreService.Destroy")
	defer span.End()

	return translate(store.Genres, id, s.repo.DeleteGenre(ctx, id))
}
