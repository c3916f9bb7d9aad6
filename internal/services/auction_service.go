package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kitgems/internal/domain"
	applog "kitgems/internal/log"
	"kitgems/internal/repos"
)

// AuctionService owns the auction lifecycle and is the sole writer of
// bid-related auction state (current_bid, bid_count, winner_id).
type AuctionService struct {
	Auctions *repos.AuctionRepo
	Bids     *repos.BidRepo
	Gems     *repos.GemRepo

	// MinIncrement is the default step for new auctions; each auction stores
	// its own min_increment and the engine always enforces the stored value.
	MinIncrement float64
	// LockWait bounds how long PlaceBid waits for the per-auction lock
	// before giving up with a retryable conflict.
	LockWait time.Duration

	locks sync.Map // auction id -> chan struct{} (capacity 1)
}

func NewAuctionService(a *repos.AuctionRepo, b *repos.BidRepo, g *repos.GemRepo, minIncrement float64, lockWait time.Duration) *AuctionService {
	if minIncrement <= 0 {
		minIncrement = 1000
	}
	if lockWait <= 0 {
		lockWait = 500 * time.Millisecond
	}
	return &AuctionService{Auctions: a, Bids: b, Gems: g, MinIncrement: minIncrement, LockWait: lockWait}
}

// DeriveStatus computes an auction's lifecycle status from its timestamps.
// Pure; the stored status column is never consulted.
func DeriveStatus(a domain.Auction, now time.Time) string {
	if now.Before(a.StartsAt()) {
		return domain.StatusUpcoming
	}
	if now.Before(a.EndsAt()) {
		return domain.StatusLive
	}
	return domain.StatusEnded
}

// acquire takes the per-auction exclusion scope with a bounded wait.
// Different auctions lock independently.
func (s *AuctionService) acquire(auctionID string) (release func(), err error) {
	v, _ := s.locks.LoadOrStore(auctionID, make(chan struct{}, 1))
	ch := v.(chan struct{})
	timer := time.NewTimer(s.LockWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: auction is busy, please retry", domain.ErrConflict)
	}
}

// bidMeetsMinimum compares money as decimals; raw float comparison would
// mis-handle amounts like 50999.999999.
func bidMeetsMinimum(amount, currentBid, increment float64) bool {
	return decimal.NewFromFloat(amount).
		GreaterThanOrEqual(decimal.NewFromFloat(currentBid).Add(decimal.NewFromFloat(increment)))
}

// NextMinimum is the smallest acceptable bid for the given state. Handlers
// surface it so clients see the same number the engine enforces.
func NextMinimum(currentBid, increment float64) float64 {
	f, _ := decimal.NewFromFloat(currentBid).Add(decimal.NewFromFloat(increment)).Float64()
	return f
}

const (
	bidWriteAttempts = 3
	bidWriteBackoff  = 25 * time.Millisecond
)

// PlaceBid validates and persists one bid. Rejections, each with a distinct
// reason: bidder missing (Unauthorized), auction missing (NotFound), auction
// not live (InvalidState, too early vs already ended), amount below
// current_bid + min_increment (ValidationFailed carrying the required
// minimum). On success the bid row insert and the current_bid/bid_count
// advance commit atomically; concurrent bids on the same auction serialize
// on a per-auction lock, and a compare-and-swap on current_bid backstops the
// lock at the store.
func (s *AuctionService) PlaceBid(auctionID, bidderID string, amount float64, now time.Time) (domain.Bid, domain.Auction, error) {
	if bidderID == "" {
		return domain.Bid{}, domain.Auction{}, fmt.Errorf("%w: sign in to place a bid", domain.ErrUnauthorized)
	}

	// Existence check before taking the lock; missing auctions never contend.
	if _, err := s.Auctions.Get(auctionID); err != nil {
		return domain.Bid{}, domain.Auction{}, err
	}

	release, err := s.acquire(auctionID)
	if err != nil {
		return domain.Bid{}, domain.Auction{}, err
	}
	defer release()

	// Re-read under the lock: status and current_bid must be decided inside
	// the exclusion scope, not from anything read earlier.
	a, err := s.Auctions.Get(auctionID)
	if err != nil {
		return domain.Bid{}, domain.Auction{}, err
	}

	switch DeriveStatus(a, now) {
	case domain.StatusUpcoming:
		return domain.Bid{}, domain.Auction{}, fmt.Errorf("%w: auction has not started yet", domain.ErrInvalidState)
	case domain.StatusEnded:
		return domain.Bid{}, domain.Auction{}, fmt.Errorf("%w: auction has ended", domain.ErrInvalidState)
	}

	if !bidMeetsMinimum(amount, a.CurrentBid, a.MinIncrement) {
		return domain.Bid{}, domain.Auction{}, &domain.ValidationError{
			Msg:         "bid too low",
			RequiredMin: NextMinimum(a.CurrentBid, a.MinIncrement),
		}
	}

	b := domain.Bid{
		ID:        uuid.NewString(),
		AuctionID: auctionID,
		UserID:    bidderID,
		Amount:    amount,
		CreatedAt: domain.FormatTS(now),
	}

	// Transient store failures retry a bounded number of times; a CAS miss
	// is a real conflict and surfaces immediately.
	for attempt := 1; ; attempt++ {
		err = s.Auctions.ApplyBid(b, a.CurrentBid)
		if err == nil {
			break
		}
		if err == domain.ErrConflict || !isTransient(err) || attempt == bidWriteAttempts {
			if err == domain.ErrConflict || isTransient(err) {
				return domain.Bid{}, domain.Auction{}, fmt.Errorf("%w: bid not recorded, please retry", domain.ErrConflict)
			}
			return domain.Bid{}, domain.Auction{}, err
		}
		time.Sleep(bidWriteBackoff)
	}

	updated, err := s.Auctions.Get(auctionID)
	if err != nil {
		return domain.Bid{}, domain.Auction{}, err
	}
	return b, updated, nil
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

// CloseExpiredAuctions transitions every stored-live auction past its end
// time to ended, recording the winner (highest bid, earliest on a tie).
// Idempotent: already-ended auctions are untouched, and winner_id is written
// once. A failure on one auction is logged and does not stop the sweep.
// Returns how many auctions were closed.
func (s *AuctionService) CloseExpiredAuctions(now time.Time) int {
	expired, err := s.Auctions.ListExpiredLive(now)
	if err != nil {
		applog.Event("auction.close.scan.fail", err, nil)
		return 0
	}

	closed := 0
	for _, a := range expired {
		did, winnerID, err := s.closeAuction(a.ID, now)
		if err != nil {
			applog.Event("auction.close.fail", err, map[string]any{"auction_id": a.ID})
			continue // retryable next sweep
		}
		if did {
			closed++
			applog.Event("auction.close", nil, map[string]any{"auction_id": a.ID, "winner_id": winnerID})
		}
	}
	return closed
}

// closeAuction picks the winner and closes under the same per-auction lock
// bids take. Without it a bid could commit between the winner read and the
// close, ending the auction with current_bid above the recorded winner's
// bid. Once Close commits, ApplyBid's status guard rejects late writers.
func (s *AuctionService) closeAuction(auctionID string, now time.Time) (bool, string, error) {
	release, err := s.acquire(auctionID)
	if err != nil {
		return false, "", err
	}
	defer release()

	a, err := s.Auctions.Get(auctionID)
	if err != nil {
		return false, "", err
	}
	winnerID := ""
	if a.BidCount > 0 {
		top, err := s.Bids.Top(a.ID)
		if err != nil {
			return false, "", err
		}
		winnerID = top.UserID
	}
	did, err := s.Auctions.Close(a.ID, winnerID, now)
	return did, winnerID, err
}

// SyncUpcoming promotes stored-upcoming auctions whose start time has
// passed. Listings filter on the stored column, so it has to track the
// derived state.
func (s *AuctionService) SyncUpcoming(now time.Time) {
	if n, err := s.Auctions.PromoteUpcoming(now); err != nil {
		applog.Event("auction.promote.fail", err, nil)
	} else if n > 0 {
		applog.Event("auction.promote", nil, map[string]any{"count": n})
	}
}

// RunCloser sweeps on a fixed interval until stop is closed.
func (s *AuctionService) RunCloser(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-t.C:
			s.SyncUpcoming(now.UTC())
			s.CloseExpiredAuctions(now.UTC())
		}
	}
}

// CreateAuction creates an auction for a gem. current_bid starts at the
// starting bid; at most one non-ended auction per gem is allowed.
func (s *AuctionService) CreateAuction(gemID string, startingBid, minIncrement float64, start, end, now time.Time) (domain.Auction, error) {
	if _, err := s.Gems.Get(gemID); err != nil {
		return domain.Auction{}, err
	}
	if !end.After(start) {
		return domain.Auction{}, &domain.ValidationError{Msg: "end time must be after start time"}
	}
	if startingBid < 0 {
		return domain.Auction{}, &domain.ValidationError{Msg: "starting bid must not be negative"}
	}
	if minIncrement <= 0 {
		minIncrement = s.MinIncrement
	}
	open, err := s.Auctions.HasOpenForGem(gemID)
	if err != nil {
		return domain.Auction{}, err
	}
	if open {
		return domain.Auction{}, fmt.Errorf("%w: gem already has an open auction", domain.ErrConflict)
	}

	a := domain.Auction{
		ID:           uuid.NewString(),
		GemID:        gemID,
		StartingBid:  startingBid,
		CurrentBid:   startingBid,
		MinIncrement: minIncrement,
		StartTime:    domain.FormatTS(start),
		EndTime:      domain.FormatTS(end),
	}
	a.Status = DeriveStatus(a, now)
	if a.Status == domain.StatusEnded {
		return domain.Auction{}, &domain.ValidationError{Msg: "auction would already be over"}
	}
	if err := s.Auctions.Create(a); err != nil {
		return domain.Auction{}, err
	}
	return a, nil
}

// EndNow closes one auction by administrative action, regardless of its end
// time. Idempotent like the sweep.
func (s *AuctionService) EndNow(auctionID string, now time.Time) error {
	// Existence check before the lock, same as PlaceBid.
	if _, err := s.Auctions.Get(auctionID); err != nil {
		return err
	}
	_, _, err := s.closeAuction(auctionID, now)
	return err
}

// ListByStatus is the read surface for listings; live auctions come back
// ordered by soonest end time.
func (s *AuctionService) ListByStatus(status string) ([]repos.AuctionWithGem, error) {
	return s.Auctions.ListByStatus(status)
}

// Detail returns one auction with its gem and bid history newest-first.
func (s *AuctionService) Detail(auctionID string) (repos.AuctionWithGem, []repos.BidRow, error) {
	a, err := s.Auctions.GetWithGem(auctionID)
	if err != nil {
		return repos.AuctionWithGem{}, nil, err
	}
	bids, err := s.Bids.History(auctionID, 50)
	if err != nil {
		return repos.AuctionWithGem{}, nil, err
	}
	return a, bids, nil
}

// BidsByUser returns a bidder's own bids with auction/gem context.
func (s *AuctionService) BidsByUser(userID string) ([]repos.UserBidRow, error) {
	return s.Bids.ListByUser(userID)
}
