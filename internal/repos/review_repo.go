package repos

import (
	"github.com/jmoiron/sqlx"

	"kitgems/internal/domain"
)

type ReviewRepo struct{ db *sqlx.DB }

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

type ReviewRow struct {
	domain.Review
	AuthorName   string `db:"author_name"`
	AuthorAvatar string `db:"author_avatar"`
}

func (r *ReviewRepo) Create(rv domain.Review) error {
	_, err := r.db.Exec(`
	  INSERT INTO reviews(id, gem_id, user_id, rating, comment, created_at)
	  VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, rv.ID, rv.GemID, rv.UserID, rv.Rating, rv.Comment)
	return err
}

func (r *ReviewRepo) ListByGem(gemID string) ([]ReviewRow, error) {
	var out []ReviewRow
	err := r.db.Select(&out, `
	  SELECT rv.id, rv.gem_id, rv.user_id, rv.rating, rv.comment, rv.created_at,
	         p.full_name AS author_name, COALESCE(p.avatar_url,'') AS author_avatar
	  FROM reviews rv
	  JOIN profiles p ON p.id = rv.user_id
	  WHERE rv.gem_id = ?
	  ORDER BY rv.created_at DESC
	`, gemID)
	return out, err
}
