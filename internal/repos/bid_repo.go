package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"kitgems/internal/domain"
)

type BidRepo struct{ db *sqlx.DB }

func NewBidRepo(db *sqlx.DB) *BidRepo { return &BidRepo{db: db} }

// BidRow is a bid with its bidder's display name, for auction history pages.
type BidRow struct {
	domain.Bid
	BidderName string `db:"bidder_name"`
}

// History returns an auction's bids newest-first.
func (r *BidRepo) History(auctionID string, limit int) ([]BidRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []BidRow
	err := r.db.Select(&out, `
	  SELECT b.id, b.auction_id, b.user_id, b.amount, b.created_at,
	         p.full_name AS bidder_name
	  FROM bids b JOIN profiles p ON p.id = b.user_id
	  WHERE b.auction_id = ?
	  ORDER BY b.created_at DESC, b.amount DESC
	  LIMIT ?`, auctionID, limit)
	return out, err
}

// Top returns the highest bid for an auction; ties (which the strict
// increase rule should make impossible) break to the earliest bid.
func (r *BidRepo) Top(auctionID string) (domain.Bid, error) {
	var b domain.Bid
	err := r.db.Get(&b, `
	  SELECT id, auction_id, user_id, amount, created_at
	  FROM bids
	  WHERE auction_id = ?
	  ORDER BY amount DESC, created_at ASC
	  LIMIT 1`, auctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bid{}, domain.ErrNotFound
	}
	return b, err
}

func (r *BidRepo) CountByAuction(auctionID string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM bids WHERE auction_id = ?`, auctionID)
	return n, err
}

// UserBidRow joins a user's bid with its auction and gem summary.
type UserBidRow struct {
	BidID      string  `db:"bid_id"`
	Amount     float64 `db:"amount"`
	CreatedAt  string  `db:"created_at"`
	AuctionID  string  `db:"auction_id"`
	Status     string  `db:"status"`
	CurrentBid float64 `db:"current_bid"`
	EndTime    string  `db:"end_time"`
	WinnerID   string  `db:"winner_id"`
	GemName    string  `db:"gem_name"`
	GemType    string  `db:"gem_type"`
}

// ListByUser returns a bidder's own bids newest-first with auction/gem context.
func (r *BidRepo) ListByUser(userID string) ([]UserBidRow, error) {
	var out []UserBidRow
	err := r.db.Select(&out, `
	  SELECT b.id AS bid_id, b.amount, b.created_at,
	         a.id AS auction_id, a.status, a.current_bid, a.end_time,
	         COALESCE(a.winner_id,'') AS winner_id,
	         g.name AS gem_name, g.type AS gem_type
	  FROM bids b
	  JOIN auctions a ON a.id = b.auction_id
	  JOIN gems g     ON g.id = a.gem_id
	  WHERE b.user_id = ?
	  ORDER BY b.created_at DESC`, userID)
	return out, err
}
