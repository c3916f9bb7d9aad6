package repos

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"kitgems/internal/domain"
)

type AuctionRepo struct{ db *sqlx.DB }

func NewAuctionRepo(db *sqlx.DB) *AuctionRepo { return &AuctionRepo{db: db} }

const auctionCols = `
  a.id, a.gem_id, a.starting_bid, a.current_bid, a.bid_count, a.min_increment,
  a.start_time, a.end_time, a.status,
  COALESCE(a.winner_id,'') AS winner_id,
  a.created_at, COALESCE(a.updated_at,'') AS updated_at`

func (r *AuctionRepo) Get(id string) (domain.Auction, error) {
	var a domain.Auction
	err := r.db.Get(&a, `SELECT `+auctionCols+` FROM auctions a WHERE a.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Auction{}, domain.ErrNotFound
	}
	return a, err
}

// AuctionWithGem joins the gem summary onto the auction row for listings.
type AuctionWithGem struct {
	domain.Auction
	GemName   string  `db:"gem_name"`
	GemType   string  `db:"gem_type"`
	GemCarat  float64 `db:"gem_carat"`
	GemOrigin string  `db:"gem_origin"`
	GemImages string  `db:"gem_images"`
}

const gemJoinCols = auctionCols + `,
  g.name AS gem_name, g.type AS gem_type, g.carat AS gem_carat,
  g.origin AS gem_origin, g.images_json AS gem_images`

// ListByStatus returns auctions with their gem summary ordered by soonest
// end time. Empty status lists everything.
func (r *AuctionRepo) ListByStatus(status string) ([]AuctionWithGem, error) {
	q := `SELECT ` + gemJoinCols + ` FROM auctions a JOIN gems g ON g.id = a.gem_id`
	args := []any{}
	if status != "" {
		q += ` WHERE a.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY a.end_time ASC`

	var out []AuctionWithGem
	err := r.db.Select(&out, q, args...)
	return out, err
}

func (r *AuctionRepo) GetWithGem(id string) (AuctionWithGem, error) {
	var a AuctionWithGem
	err := r.db.Get(&a, `
	  SELECT `+gemJoinCols+`
	  FROM auctions a JOIN gems g ON g.id = a.gem_id
	  WHERE a.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return AuctionWithGem{}, domain.ErrNotFound
	}
	return a, err
}

// ListExpiredLive returns stored-live auctions whose end time has passed.
// RFC3339 strings compare correctly as text.
func (r *AuctionRepo) ListExpiredLive(now time.Time) ([]domain.Auction, error) {
	var out []domain.Auction
	err := r.db.Select(&out, `
	  SELECT `+auctionCols+` FROM auctions a
	  WHERE a.status = 'live' AND a.end_time <= ?
	  ORDER BY a.end_time ASC`, domain.FormatTS(now))
	return out, err
}

// HasOpenForGem reports whether a non-ended auction references the gem.
func (r *AuctionRepo) HasOpenForGem(gemID string) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM auctions WHERE gem_id = ? AND status != 'ended'`, gemID)
	return n > 0, err
}

func (r *AuctionRepo) Create(a domain.Auction) error {
	_, err := r.db.Exec(`
	  INSERT INTO auctions(id,gem_id,starting_bid,current_bid,bid_count,min_increment,
	    start_time,end_time,status,created_at)
	  VALUES(?,?,?,?,0,?,?,?,?,CURRENT_TIMESTAMP)`,
		a.ID, a.GemID, a.StartingBid, a.CurrentBid, a.MinIncrement,
		a.StartTime, a.EndTime, a.Status)
	return err
}

// ApplyBid performs the atomic accept step: insert the bid row and advance
// current_bid/bid_count in one transaction, guarded by a compare-and-swap on
// the current_bid value read under the caller's exclusion scope. Zero rows
// affected means another writer got there first.
func (r *AuctionRepo) ApplyBid(b domain.Bid, prevBid float64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
	  UPDATE auctions
	  SET current_bid = ?, bid_count = bid_count + 1, updated_at = ?
	  WHERE id = ? AND current_bid = ? AND status != 'ended'
	`, b.Amount, b.CreatedAt, b.AuctionID, prevBid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}

	if _, err := tx.Exec(`
	  INSERT INTO bids(id,auction_id,user_id,amount,created_at)
	  VALUES(?,?,?,?,?)
	`, b.ID, b.AuctionID, b.UserID, b.Amount, b.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// Close transitions one auction to ended and records the winner. Conditional
// on not already being ended, so repeated invocations are no-ops and never
// rewrite winner_id.
func (r *AuctionRepo) Close(id, winnerID string, now time.Time) (bool, error) {
	var winner any
	if winnerID != "" {
		winner = winnerID
	}
	res, err := r.db.Exec(`
	  UPDATE auctions
	  SET status = 'ended', winner_id = ?, updated_at = ?
	  WHERE id = ? AND status != 'ended'
	`, winner, domain.FormatTS(now), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// PromoteUpcoming flips stored-upcoming auctions to live once their start
// time has passed; a catch-up for the read model only.
func (r *AuctionRepo) PromoteUpcoming(now time.Time) (int64, error) {
	res, err := r.db.Exec(`
	  UPDATE auctions SET status = 'live', updated_at = ?
	  WHERE status = 'upcoming' AND start_time <= ?
	`, domain.FormatTS(now), domain.FormatTS(now))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
