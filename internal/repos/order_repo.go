package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"kitgems/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type OrderItemRow struct {
	GemID    string  `db:"gem_id"`
	Name     string  `db:"name"`
	Type     string  `db:"type"`
	Quantity int     `db:"quantity"`
	Price    float64 `db:"price"`
	Subtotal float64 `db:"subtotal"`
}

type OrderItemInput struct {
	GemID    string
	Quantity int
	Price    float64
}

// Create inserts the order header and its line items in one transaction and
// clears the user's cart.
func (r *OrderRepo) Create(o domain.Order, items []OrderItemInput) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO orders(id, user_id, total, status, shipping_json, created_at)
	  VALUES(?, ?, ?, 'pending', ?, CURRENT_TIMESTAMP)
	`, o.ID, o.UserID, o.Total, o.ShippingJSON); err != nil {
		return err
	}

	for _, it := range items {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, gem_id, quantity, price)
		  VALUES(?, ?, ?, ?)
		`, o.ID, it.GemID, it.Quantity, it.Price); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM cart WHERE user_id = ?`, o.UserID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepo) Get(orderID string) (domain.Order, []OrderItemRow, error) {
	var o domain.Order
	if err := r.db.Get(&o, `
		SELECT id, user_id, total, status, shipping_json, created_at
		FROM orders WHERE id = ?
	`, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, nil, domain.ErrNotFound
		}
		return domain.Order{}, nil, err
	}

	var items []OrderItemRow
	if err := r.db.Select(&items, `
		SELECT oi.gem_id, g.name, g.type, oi.quantity, oi.price,
		       (oi.quantity * oi.price) AS subtotal
		FROM order_items oi
		JOIN gems g ON g.id = oi.gem_id
		WHERE oi.order_id = ?
		ORDER BY g.name
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}

	return o, items, nil
}

func (r *OrderRepo) ListByUser(userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT id, user_id, total, status, shipping_json, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC
	`, userID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT id, user_id, total, status, shipping_json, created_at
		FROM orders
		ORDER BY datetime(created_at) DESC
		LIMIT ?
	`, limit)
	return out, err
}

func (r *OrderRepo) UpdateStatus(id, status string) error {
	res, err := r.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
