package repos

import (
	"github.com/jmoiron/sqlx"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

type CartItemRow struct {
	GemID      string  `db:"gem_id"`
	Name       string  `db:"name"`
	Type       string  `db:"type"`
	Quantity   int     `db:"quantity"`
	PriceAtAdd float64 `db:"price_at_add"`
	Subtotal   float64 `db:"subtotal"`
	InStock    bool    `db:"in_stock"`
}

// UpsertItem adds a gem to the user's cart or bumps its quantity. The price
// is captured at add time and not re-read live.
func (r *CartRepo) UpsertItem(userID, gemID string, qty int, price float64) error {
	_, err := r.db.Exec(`
		INSERT INTO cart(user_id,gem_id,quantity,price_at_add,created_at)
		VALUES(?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(user_id,gem_id) DO UPDATE
		SET quantity = cart.quantity + excluded.quantity, updated_at = CURRENT_TIMESTAMP
	`, userID, gemID, qty, price)
	return err
}

// SetQuantity replaces the quantity of an existing line.
func (r *CartRepo) SetQuantity(userID, gemID string, qty int) error {
	_, err := r.db.Exec(`
		UPDATE cart SET quantity = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND gem_id = ?
	`, qty, userID, gemID)
	return err
}

func (r *CartRepo) RemoveItem(userID, gemID string) error {
	_, err := r.db.Exec(`DELETE FROM cart WHERE user_id = ? AND gem_id = ?`, userID, gemID)
	return err
}

func (r *CartRepo) Items(userID string) ([]CartItemRow, error) {
	rows := []CartItemRow{}
	err := r.db.Select(&rows, `
	  SELECT c.gem_id, g.name, g.type, c.quantity, c.price_at_add,
	         (c.quantity*c.price_at_add) AS subtotal, g.in_stock
	  FROM cart c JOIN gems g ON g.id=c.gem_id
	  WHERE c.user_id = ?
	  ORDER BY c.created_at
	`, userID)
	return rows, err
}

func (r *CartRepo) Clear(userID string) error {
	_, err := r.db.Exec(`DELETE FROM cart WHERE user_id = ?`, userID)
	return err
}
