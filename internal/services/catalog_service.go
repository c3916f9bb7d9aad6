package services

import (
	"strings"

	"kitgems/internal/domain"
	"kitgems/internal/repos"
)

type CatalogService struct {
	Gems    *repos.GemRepo
	Reviews *repos.ReviewRepo
}

func NewCatalogService(gems *repos.GemRepo, reviews *repos.ReviewRepo) *CatalogService {
	return &CatalogService{Gems: gems, Reviews: reviews}
}

// Featured returns the home-page selection.
func (s *CatalogService) Featured(limit int) ([]domain.Gem, error) {
	if limit <= 0 {
		limit = 6
	}
	featured := true
	return s.Gems.List("", &featured, nil, limit, 0)
}

func (s *CatalogService) ListGems(gemType string, inStockOnly bool, page, pageSize int) ([]domain.Gem, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	var inStock *bool
	if inStockOnly {
		t := true
		inStock = &t
	}
	return s.Gems.List(gemType, nil, inStock, pageSize, (page-1)*pageSize)
}

func (s *CatalogService) GetGem(id string) (domain.Gem, error) {
	return s.Gems.Get(id)
}

// GemWithReviews is the shop detail view.
func (s *CatalogService) GemWithReviews(id string) (domain.Gem, []repos.ReviewRow, error) {
	g, err := s.Gems.Get(id)
	if err != nil {
		return domain.Gem{}, nil, err
	}
	reviews, err := s.Reviews.ListByGem(id)
	if err != nil {
		return domain.Gem{}, nil, err
	}
	return g, reviews, nil
}

// Search backs the search-as-you-type box: name, type, or origin, capped at
// ten results.
func (s *CatalogService) Search(q string) ([]domain.Gem, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []domain.Gem{}, nil
	}
	return s.Gems.Search(q, 10)
}
