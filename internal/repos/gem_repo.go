package repos

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"kitgems/internal/domain"
)

type GemRepo struct{ db *sqlx.DB }

func NewGemRepo(db *sqlx.DB) *GemRepo { return &GemRepo{db: db} }

const gemCols = `
  id, name, type, description, price, carat, color, origin, cut, clarity,
  images_json, certification, in_stock, featured,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *GemRepo) Get(id string) (domain.Gem, error) {
	var g domain.Gem
	err := r.db.Get(&g, `SELECT `+gemCols+` FROM gems WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Gem{}, domain.ErrNotFound
	}
	return g, err
}

// List returns gems filtered by type/featured/in-stock, newest first.
// Empty gemType and nil flags mean "no filter".
func (r *GemRepo) List(gemType string, featured, inStock *bool, limit, offset int) ([]domain.Gem, error) {
	where := `1=1`
	args := []any{}
	if gemType != "" {
		where += ` AND type = ?`
		args = append(args, gemType)
	}
	if featured != nil {
		where += ` AND featured = ?`
		args = append(args, *featured)
	}
	if inStock != nil {
		where += ` AND in_stock = ?`
		args = append(args, *inStock)
	}
	args = append(args, limit, offset)

	var out []domain.Gem
	err := r.db.Select(&out, `
	  SELECT `+gemCols+` FROM gems
	  WHERE `+where+`
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?`, args...)
	return out, err
}

// Search matches name, type, or origin for search-as-you-type.
func (r *GemRepo) Search(q string, limit int) ([]domain.Gem, error) {
	like := "%" + q + "%"
	var out []domain.Gem
	err := r.db.Select(&out, `
	  SELECT `+gemCols+` FROM gems
	  WHERE LOWER(name) LIKE ? OR LOWER(type) LIKE ? OR LOWER(origin) LIKE ?
	  ORDER BY created_at DESC
	  LIMIT ?`, like, like, like, limit)
	return out, err
}

func (r *GemRepo) Create(g domain.Gem) error {
	_, err := r.db.Exec(`
	  INSERT INTO gems(id,name,type,description,price,carat,color,origin,cut,clarity,
	    images_json,certification,in_stock,featured,created_at)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)`,
		g.ID, g.Name, g.Type, g.Description, g.Price, g.Carat, g.Color, g.Origin,
		g.Cut, g.Clarity, g.ImagesJSON, g.Certification, g.InStock, g.Featured)
	return err
}

func (r *GemRepo) Update(g domain.Gem) error {
	res, err := r.db.Exec(`
	  UPDATE gems SET name=?, type=?, description=?, price=?, carat=?, color=?,
	    origin=?, cut=?, clarity=?, images_json=?, certification=?, in_stock=?,
	    featured=?, updated_at=?
	  WHERE id=?`,
		g.Name, g.Type, g.Description, g.Price, g.Carat, g.Color, g.Origin,
		g.Cut, g.Clarity, g.ImagesJSON, g.Certification, g.InStock, g.Featured,
		time.Now().UTC().Format(time.RFC3339), g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GemRepo) SetStock(id string, inStock bool) error {
	res, err := r.db.Exec(`UPDATE gems SET in_stock=?, updated_at=? WHERE id=?`,
		inStock, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a gem; refused by the schema while auctions or orders
// still reference it.
func (r *GemRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM gems WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
