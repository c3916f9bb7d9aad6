package domain

import "time"

// Auction lifecycle statuses, derived from start/end timestamps.
const (
	StatusUpcoming = "upcoming"
	StatusLive     = "live"
	StatusEnded    = "ended"
)

// Auction is a time-boxed bidding process for one gem. current_bid starts at
// starting_bid and only the bid engine may move it; the stored status column
// is a read model for listings and is never trusted for bid decisions.
type Auction struct {
	ID           string  `db:"id"`
	GemID        string  `db:"gem_id"`
	StartingBid  float64 `db:"starting_bid"`
	CurrentBid   float64 `db:"current_bid"`
	BidCount     int     `db:"bid_count"`
	MinIncrement float64 `db:"min_increment"`
	StartTime    string  `db:"start_time"` // RFC3339, UTC
	EndTime      string  `db:"end_time"`   // RFC3339, UTC
	Status       string  `db:"status"`
	WinnerID     string  `db:"winner_id"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
}

// StartsAt parses the auction start timestamp. Zero time on parse failure so
// a malformed row reads as already-startable rather than panicking.
func (a Auction) StartsAt() time.Time { return parseTS(a.StartTime) }

// EndsAt parses the auction end timestamp.
func (a Auction) EndsAt() time.Time { return parseTS(a.EndTime) }

func parseTS(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// sqlite CURRENT_TIMESTAMP format
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

// FormatTS renders a timestamp the way auction rows store them.
func FormatTS(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// Bid is an immutable, append-only record of one offer on one auction.
type Bid struct {
	ID        string  `db:"id"`
	AuctionID string  `db:"auction_id"`
	UserID    string  `db:"user_id"`
	Amount    float64 `db:"amount"`
	CreatedAt string  `db:"created_at"`
}
