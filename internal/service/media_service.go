package service

import (
	"context"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"

	"go.uber.org/zap"
)

// MediaInput is the body of media create and update requests. Genres lists
// genre ids; when omitted on update the current genres are kept.
type MediaInput struct {
	Title       string           `json:"title" binding:"required"`
	Subtitle    *string          `json:"subtitle"`
	AuthorName  *string          `json:"authorName"`
	Description *string          `json:"description"`
	ReleaseYear *int             `json:"releaseYear" binding:"omitempty,min=0"`
	MediaType   models.MediaType `json:"mediaType" binding:"required,mediatype"`
	Genres      []int64          `json:"genres"`
}

func (in *MediaInput) media(id int64) *models.Media {
	return &models.Media{
		ID:          id,
		Title:       in.Title,
		Subtitle:    in.Subtitle,
		AuthorName:  in.AuthorName,
		Description: in.Description,
		ReleaseYear: in.ReleaseYear,
		MediaType:   in.MediaType,
	}
}

// MediaService handles media titles and their genre links
type MediaService struct {
	repo   store.Repository
	logger *zap.Logger
}

var _ CrudService[models.Media, MediaInput] = (*MediaService)(nil)

// NewMediaService creates a new media service
func NewMediaService(repo store.Repository) *MediaService {
	return &MediaService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

func (s *MediaService) GetAll(ctx context.Context, p models.ListParams) (*models.Results[models.Media], error) {
	ctx, span := util.StartSpan(ctx, "MediaService.GetAll")
	defer span.End()

	medias, total, err := s.repo.ListMedias(ctx, p)
	if err != nil {
		return nil, err
	}
	return results(medias, total), nil
}

func (s *MediaService) GetOne(ctx context.Context, id int64) (*models.Media, error) {
	ctx, span := util.StartSpan(ctx, "MediaService.GetOne")
	defer span.End()

	media, err := s.repo.GetMedia(ctx, id)
	if err != nil {
		return nil, translate(store.Medias, id, err)
	}
	return media, nil
}

func (s *MediaService) Create(ctx context.Context, in *MediaInput) (*models.Media, error) {
	ctx, span := util.StartSpan(ctx, "MediaService.Create")
	defer span.End()

	var media *models.Media
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		m := in.media(0)
		genreIDs := store.UniqueIDs(in.Genres)
		if err := tx.CreateMedia(ctx, m, genreIDs); err != nil {
			return translate(store.Medias, nil, err)
		}

		created, err := tx.GetMedia(ctx, m.ID)
		if err != nil {
			return translate(store.Medias, m.ID, err)
		}
		media = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Media created",
		zap.Int64("media_id", media.ID),
		zap.String("media_type", string(media.MediaType)))
	return media, nil
}

func (s *MediaService) Update(ctx context.Context, id int64, in *MediaInput) (*models.Media, error) {
	ctx, span := util.StartSpan(ctx, "MediaService.Update")
	defer span.End()

	var genreIDs []int64
	if in.Genres != nil {
		genreIDs = store.UniqueIDs(in.Genres)
	}

	var media *models.Media
	err := s.repo.InTx(ctx, func(tx store.Repository) error {
		if err := tx.UpdateMedia(ctx, in.media(id), genreIDs); err != nil {
			return translate(store.Medias, id, err)
		}

		updated, err := tx.GetMedia(ctx, id)
		if err != nil {
			return translate(store.Medias, id, err)
		}
		media = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}

// Destroy archives the media. Its units stay untouched.
func (s *MediaService) Destroy(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "MediaService.Destroy")
	defer span.End()

	if err := s.repo.Archive(ctx, store.Medias, id); err != nil {
		return translate(store.Medias, id, err)
	}

	s.logger.Info("Media archived", zap.Int64("media_id", id))
	return nil
}
