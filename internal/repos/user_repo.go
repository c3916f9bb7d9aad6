package repos

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"kitgems/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, email, full_name,
  COALESCE(avatar_url,'') AS avatar_url, COALESCE(phone,'') AS phone,
  password_hash, is_admin`

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM profiles WHERE LOWER(email)=LOWER(?)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM profiles WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(u domain.User) error {
	_, err := r.DB.Exec(`
	  INSERT INTO profiles(id,email,full_name,password_hash,is_admin)
	  VALUES(?,?,?,?,?)`,
		u.ID, u.Email, u.FullName, u.Hash, u.IsAdmin)
	return err
}

// UpdateProfile changes the user-editable fields only.
func (r *UserRepo) UpdateProfile(id, fullName, phone, avatarURL string) error {
	res, err := r.DB.Exec(`
	  UPDATE profiles SET full_name=?, phone=?, avatar_url=?, updated_at=?
	  WHERE id=?`,
		fullName, phone, avatarURL, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetAdmin(id string, admin bool) error {
	res, err := r.DB.Exec(`UPDATE profiles SET is_admin=? WHERE id=?`, admin, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) List() ([]domain.User, error) {
	var out []domain.User
	err := r.DB.Select(&out, `SELECT `+userCols+` FROM profiles ORDER BY email`)
	return out, err
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT p.id, p.email, p.full_name,
             COALESCE(p.avatar_url,'') AS avatar_url, COALESCE(p.phone,'') AS phone,
             p.password_hash, p.is_admin
      FROM sessions s
      JOIN profiles p ON p.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// DeleteUserCascade cancels the user's orders and removes their cart,
// wishlist, and sessions. Bid rows are kept: the bid ledger is append-only
// and closed auctions must keep their history.
func (r *UserRepo) DeleteUserCascade(userID string) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE orders SET status='cancelled' WHERE user_id=? AND status IN ('pending','processing')`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM cart WHERE user_id=?`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM wishlist WHERE user_id=?`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id=?`, userID); err != nil {
		return err
	}

	// Keep the profile row if bids or orders still reference it; just strip
	// credentials so the account cannot log in again.
	var refs int
	if err := tx.Get(&refs, `
	  SELECT (SELECT COUNT(*) FROM bids WHERE user_id=?) +
	         (SELECT COUNT(*) FROM orders WHERE user_id=?)`, userID, userID); err != nil {
		return err
	}
	if refs > 0 {
		if _, err := tx.Exec(`UPDATE profiles SET password_hash='', is_admin=0 WHERE id=?`, userID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(`DELETE FROM profiles WHERE id=?`, userID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
