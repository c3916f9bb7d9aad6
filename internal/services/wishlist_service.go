package services

import (
	"fmt"

	"kitgems/internal/domain"
	"kitgems/internal/repos"
)

type WishlistService struct {
	Repo *repos.WishlistRepo
	Gems *repos.GemRepo
}

func NewWishlistService(r *repos.WishlistRepo, gems *repos.GemRepo) *WishlistService {
	return &WishlistService{Repo: r, Gems: gems}
}

func (s *WishlistService) Save(userID, gemID string) error {
	if userID == "" {
		return fmt.Errorf("%w: sign in to save gems", domain.ErrUnauthorized)
	}
	if _, err := s.Gems.Get(gemID); err != nil {
		return err
	}
	return s.Repo.Add(userID, gemID)
}

func (s *WishlistService) Unsave(userID, gemID string) error {
	return s.Repo.Remove(userID, gemID)
}

func (s *WishlistService) List(userID string) ([]repos.WishlistRow, error) {
	return s.Repo.List(userID)
}
