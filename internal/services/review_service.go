package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"kitgems/internal/domain"
	"kitgems/internal/repos"
)

type ReviewService struct {
	Repo *repos.ReviewRepo
	Gems *repos.GemRepo
}

func NewReviewService(r *repos.ReviewRepo, gems *repos.GemRepo) *ReviewService {
	return &ReviewService{Repo: r, Gems: gems}
}

func (s *ReviewService) Create(userID, gemID string, rating int, comment string) error {
	if userID == "" {
		return fmt.Errorf("%w: sign in to review", domain.ErrUnauthorized)
	}
	if rating < 1 || rating > 5 {
		return &domain.ValidationError{Msg: "rating must be between 1 and 5"}
	}
	if _, err := s.Gems.Get(gemID); err != nil {
		return err
	}
	return s.Repo.Create(domain.Review{
		ID:      uuid.NewString(),
		GemID:   gemID,
		UserID:  userID,
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
	})
}
