package service

import (
	"context"

	"rental-service/internal/models"
	"rental-service/internal/store"
	"rental-service/internal/util"
)

// SearchService queries media across titles, types and unit offers
type SearchService struct {
	repo store.MediaRepository
}

func NewSearchService(repo store.MediaRepository) *SearchService {
	return &SearchService{repo: repo}
}

// Search returns unarchived media matching every filter that is set.
// Unknown media or negotiation types are treated as absent.
func (s *SearchService) Search(ctx context.Context, p models.SearchParams) (*models.Results[models.Media], error) {
	ctx, span := util.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	if !p.MediaType.Valid() {
		p.MediaType = ""
	}
	if !p.AvailableFor.Valid() {
		p.AvailableFor = ""
	}

	medias, total, err := s.repo.SearchMedias(ctx, p)
	if err != nil {
		return nil, err
	}
	return results(medias, total), nil
}
