package repos

import (
	"github.com/jmoiron/sqlx"
)

type WishlistRepo struct{ db *sqlx.DB }

func NewWishlistRepo(db *sqlx.DB) *WishlistRepo { return &WishlistRepo{db: db} }

func (r *WishlistRepo) Add(userID, gemID string) error {
	_, err := r.db.Exec(`
	  INSERT INTO wishlist(user_id, gem_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(user_id, gem_id) DO NOTHING
	`, userID, gemID)
	return err
}

func (r *WishlistRepo) Remove(userID, gemID string) error {
	_, err := r.db.Exec(`DELETE FROM wishlist WHERE user_id=? AND gem_id=?`, userID, gemID)
	return err
}

type WishlistRow struct {
	GemID   string  `db:"gem_id"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	Price   float64 `db:"price"`
	InStock bool    `db:"in_stock"`
}

func (r *WishlistRepo) List(userID string) ([]WishlistRow, error) {
	var out []WishlistRow
	err := r.db.Select(&out, `
	  SELECT g.id AS gem_id, g.name, g.type, g.price, g.in_stock
	  FROM wishlist w
	  JOIN gems g ON g.id = w.gem_id
	  WHERE w.user_id = ?
	  ORDER BY w.created_at DESC
	`, userID)
	return out, err
}
