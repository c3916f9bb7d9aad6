package services_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"kitgems/internal/domain"
	"kitgems/internal/repos"
	"kitgems/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// One connection: the pool must not fan out to fresh empty in-memory DBs.
	db.SetMaxOpenConns(1)
	schema := `
	CREATE TABLE profiles(
	  id TEXT PRIMARY KEY,
	  email TEXT NOT NULL UNIQUE,
	  full_name TEXT NOT NULL,
	  avatar_url TEXT NOT NULL DEFAULT '',
	  phone TEXT NOT NULL DEFAULT '',
	  password_hash TEXT NOT NULL DEFAULT '',
	  is_admin INTEGER NOT NULL DEFAULT 0,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	  updated_at TEXT
	);
	CREATE TABLE gems(
	  id TEXT PRIMARY KEY,
	  name TEXT NOT NULL,
	  type TEXT NOT NULL,
	  description TEXT NOT NULL DEFAULT '',
	  price NUMERIC NOT NULL,
	  carat NUMERIC NOT NULL DEFAULT 0,
	  color TEXT NOT NULL DEFAULT '',
	  origin TEXT NOT NULL DEFAULT '',
	  cut TEXT NOT NULL DEFAULT '',
	  clarity TEXT NOT NULL DEFAULT '',
	  images_json TEXT NOT NULL DEFAULT '[]',
	  certification TEXT NOT NULL DEFAULT '',
	  in_stock INTEGER NOT NULL DEFAULT 1,
	  featured INTEGER NOT NULL DEFAULT 0,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	  updated_at TEXT
	);
	CREATE TABLE auctions(
	  id TEXT PRIMARY KEY,
	  gem_id TEXT NOT NULL,
	  starting_bid NUMERIC NOT NULL,
	  current_bid NUMERIC NOT NULL,
	  bid_count INTEGER NOT NULL DEFAULT 0,
	  min_increment NUMERIC NOT NULL,
	  start_time TEXT NOT NULL,
	  end_time TEXT NOT NULL,
	  status TEXT NOT NULL,
	  winner_id TEXT NULL,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	  updated_at TEXT
	);
	CREATE TABLE bids(
	  id TEXT PRIMARY KEY,
	  auction_id TEXT NOT NULL,
	  user_id TEXT NOT NULL,
	  amount NUMERIC NOT NULL,
	  created_at TEXT NOT NULL
	);
	CREATE TABLE sessions(
	  id TEXT PRIMARY KEY,
	  user_id TEXT NULL,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	  last_seen TEXT
	);
	CREATE TABLE cart(
	  user_id TEXT NOT NULL,
	  gem_id TEXT NOT NULL,
	  quantity INTEGER NOT NULL,
	  price_at_add NUMERIC NOT NULL,
	  created_at TEXT,
	  updated_at TEXT,
	  PRIMARY KEY (user_id, gem_id)
	);
	CREATE TABLE orders(
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL,
	  total NUMERIC NOT NULL,
	  status TEXT NOT NULL DEFAULT 'pending',
	  shipping_json TEXT NOT NULL DEFAULT '{}',
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE order_items(
	  order_id TEXT NOT NULL,
	  gem_id TEXT NOT NULL,
	  quantity INTEGER NOT NULL,
	  price NUMERIC NOT NULL,
	  PRIMARY KEY (order_id, gem_id)
	);
	CREATE TABLE wishlist(
	  user_id TEXT NOT NULL,
	  gem_id TEXT NOT NULL,
	  created_at TEXT,
	  PRIMARY KEY (user_id, gem_id)
	);
	CREATE TABLE reviews(
	  id TEXT PRIMARY KEY,
	  gem_id TEXT NOT NULL,
	  user_id TEXT NOT NULL,
	  rating INTEGER NOT NULL,
	  comment TEXT NOT NULL DEFAULT '',
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);
	INSERT INTO gems(id,name,type,price,carat) VALUES
	  ('gem-1','Kashmir Blue Sapphire','sapphire',48000,4.12),
	  ('gem-2','Burmese Ruby','ruby',62000,3.05);
	INSERT INTO profiles(id,email,full_name) VALUES
	  ('u-maya','maya@kitgems.test','Maya Chen'),
	  ('u-arun','arun@kitgems.test','Arun Patel');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

func newAuctionSvc(t *testing.T) (*services.AuctionService, *sqlx.DB) {
	t.Helper()
	db := memdb(t)
	svc := services.NewAuctionService(
		repos.NewAuctionRepo(db), repos.NewBidRepo(db), repos.NewGemRepo(db),
		1000, 500*time.Millisecond,
	)
	return svc, db
}

func insertAuction(t *testing.T, db *sqlx.DB, a domain.Auction) {
	t.Helper()
	_, err := db.Exec(`
	  INSERT INTO auctions(id,gem_id,starting_bid,current_bid,bid_count,min_increment,start_time,end_time,status)
	  VALUES(?,?,?,?,?,?,?,?,?)`,
		a.ID, a.GemID, a.StartingBid, a.CurrentBid, a.BidCount, a.MinIncrement,
		a.StartTime, a.EndTime, a.Status)
	if err != nil {
		t.Fatal(err)
	}
}

func liveAuction(id string, startingBid, increment float64, now time.Time) domain.Auction {
	return domain.Auction{
		ID: id, GemID: "gem-1",
		StartingBid: startingBid, CurrentBid: startingBid, MinIncrement: increment,
		StartTime: domain.FormatTS(now.Add(-time.Hour)),
		EndTime:   domain.FormatTS(now.Add(time.Hour)),
		Status:    domain.StatusLive,
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	a := domain.Auction{
		StartTime: domain.FormatTS(now.Add(time.Hour)),
		EndTime:   domain.FormatTS(now.Add(2 * time.Hour)),
	}
	if got := services.DeriveStatus(a, now); got != domain.StatusUpcoming {
		t.Fatalf("before start: want upcoming, got %s", got)
	}
	if got := services.DeriveStatus(a, now.Add(time.Hour)); got != domain.StatusLive {
		t.Fatalf("at start: want live, got %s", got)
	}
	if got := services.DeriveStatus(a, now.Add(90*time.Minute)); got != domain.StatusLive {
		t.Fatalf("mid-window: want live, got %s", got)
	}
	if got := services.DeriveStatus(a, now.Add(2*time.Hour)); got != domain.StatusEnded {
		t.Fatalf("at end: want ended, got %s", got)
	}
}

func TestPlaceBid_MinimumIncrement(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()
	insertAuction(t, db, liveAuction("auc-1", 50000, 1000, now))

	// Below starting_bid + increment
	_, _, err := svc.PlaceBid("auc-1", "u-maya", 50500, now)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.RequiredMin != 51000 {
		t.Fatalf("want required min 51000, got %v", ve.RequiredMin)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ValidationError should match ErrValidation")
	}

	// Exactly the minimum is acceptable
	bid, a, err := svc.PlaceBid("auc-1", "u-maya", 51000, now)
	if err != nil {
		t.Fatal(err)
	}
	if bid.Amount != 51000 || a.CurrentBid != 51000 || a.BidCount != 1 {
		t.Fatalf("want current 51000 count 1, got bid=%v auction=%+v", bid.Amount, a)
	}
}

func TestPlaceBid_LowerThanCurrent(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()
	insertAuction(t, db, liveAuction("auc-1", 50000, 1000, now))

	if _, _, err := svc.PlaceBid("auc-1", "u-maya", 53000, now); err != nil {
		t.Fatal(err)
	}
	_, _, err := svc.PlaceBid("auc-1", "u-arun", 52000, now)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.RequiredMin != 54000 {
		t.Fatalf("want required min 54000, got %v", ve.RequiredMin)
	}

	// The rejection must leave no trace
	a, err := repos.NewAuctionRepo(db).Get("auc-1")
	if err != nil {
		t.Fatal(err)
	}
	if a.CurrentBid != 53000 || a.BidCount != 1 {
		t.Fatalf("rejected bid mutated auction: %+v", a)
	}
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM bids WHERE auction_id='auc-1'`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 bid row, got %d", n)
	}
}

func TestPlaceBid_Lifecycle(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()

	ended := liveAuction("auc-ended", 50000, 1000, now)
	ended.StartTime = domain.FormatTS(now.Add(-3 * time.Hour))
	ended.EndTime = domain.FormatTS(now.Add(-time.Hour))
	insertAuction(t, db, ended)

	upcoming := liveAuction("auc-soon", 50000, 1000, now)
	upcoming.GemID = "gem-2"
	upcoming.StartTime = domain.FormatTS(now.Add(time.Hour))
	upcoming.EndTime = domain.FormatTS(now.Add(2 * time.Hour))
	upcoming.Status = domain.StatusUpcoming
	insertAuction(t, db, upcoming)

	if _, _, err := svc.PlaceBid("auc-ended", "u-maya", 99999, now); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ended auction: want ErrInvalidState, got %v", err)
	}
	if _, _, err := svc.PlaceBid("auc-soon", "u-maya", 99999, now); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("upcoming auction: want ErrInvalidState, got %v", err)
	}
	if _, _, err := svc.PlaceBid("auc-missing", "u-maya", 99999, now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing auction: want ErrNotFound, got %v", err)
	}
	if _, _, err := svc.PlaceBid("auc-soon", "", 99999, now); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous bidder: want ErrUnauthorized, got %v", err)
	}
}

func TestPlaceBid_Concurrent(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()
	insertAuction(t, db, liveAuction("auc-1", 50000, 1000, now))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := 50000 + float64(i)*1000
			_, _, err := svc.PlaceBid("auc-1", fmt.Sprintf("u-%d", i%2), amount, now)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrConflict) {
				t.Errorf("unexpected bid error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	a, err := repos.NewAuctionRepo(db).Get("auc-1")
	if err != nil {
		t.Fatal(err)
	}
	// The highest bid always clears the bar when its turn comes, so the final
	// price is deterministic even though the acceptance set is not.
	if a.CurrentBid != 50000+workers*1000 {
		t.Fatalf("want final current_bid %v, got %v", 50000+workers*1000, a.CurrentBid)
	}
	if a.BidCount != accepted {
		t.Fatalf("bid_count %d != accepted %d", a.BidCount, accepted)
	}
	var rows int
	if err := db.Get(&rows, `SELECT COUNT(*) FROM bids WHERE auction_id='auc-1'`); err != nil {
		t.Fatal(err)
	}
	if rows != accepted {
		t.Fatalf("bid rows %d != accepted %d", rows, accepted)
	}
}

func TestCloseExpiredAuctions_Idempotent(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()

	a := liveAuction("auc-1", 50000, 1000, now)
	insertAuction(t, db, a)

	if _, _, err := svc.PlaceBid("auc-1", "u-maya", 51000, now); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.PlaceBid("auc-1", "u-arun", 52000, now); err != nil {
		t.Fatal(err)
	}

	// Not expired yet
	if n := svc.CloseExpiredAuctions(now); n != 0 {
		t.Fatalf("nothing expired, closed %d", n)
	}

	later := now.Add(2 * time.Hour)
	if n := svc.CloseExpiredAuctions(later); n != 1 {
		t.Fatalf("want 1 closed, got %d", n)
	}
	got, err := repos.NewAuctionRepo(db).Get("auc-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusEnded || got.WinnerID != "u-arun" {
		t.Fatalf("want ended with winner u-arun, got %+v", got)
	}

	// Second sweep touches nothing
	if n := svc.CloseExpiredAuctions(later.Add(time.Minute)); n != 0 {
		t.Fatalf("second sweep closed %d", n)
	}
	again, _ := repos.NewAuctionRepo(db).Get("auc-1")
	if again.WinnerID != "u-arun" || again.UpdatedAt != got.UpdatedAt {
		t.Fatalf("second sweep rewrote the auction: %+v vs %+v", again, got)
	}
}

func TestCloseExpiredAuctions_NoBidsNoWinner(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()

	a := liveAuction("auc-1", 50000, 1000, now)
	a.StartTime = domain.FormatTS(now.Add(-2 * time.Hour))
	a.EndTime = domain.FormatTS(now.Add(-time.Hour))
	insertAuction(t, db, a)

	if n := svc.CloseExpiredAuctions(now); n != 1 {
		t.Fatalf("want 1 closed, got %d", n)
	}
	got, _ := repos.NewAuctionRepo(db).Get("auc-1")
	if got.Status != domain.StatusEnded || got.WinnerID != "" {
		t.Fatalf("want ended without winner, got %+v", got)
	}
}

func TestCloseExpiredAuctions_TieGoesToEarliestBid(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()

	a := liveAuction("auc-1", 50000, 1000, now)
	a.StartTime = domain.FormatTS(now.Add(-2 * time.Hour))
	a.EndTime = domain.FormatTS(now.Add(-time.Minute))
	a.BidCount = 2
	a.CurrentBid = 52000
	insertAuction(t, db, a)

	// Equal-amount rows can exist in a store that accepted them under an
	// older rule; the earliest one must win.
	db.MustExec(`INSERT INTO bids(id,auction_id,user_id,amount,created_at) VALUES
	  ('b-1','auc-1','u-maya',52000,?),
	  ('b-2','auc-1','u-arun',52000,?)`,
		domain.FormatTS(now.Add(-30*time.Minute)), domain.FormatTS(now.Add(-10*time.Minute)))

	if n := svc.CloseExpiredAuctions(now); n != 1 {
		t.Fatalf("want 1 closed, got %d", n)
	}
	got, _ := repos.NewAuctionRepo(db).Get("auc-1")
	if got.WinnerID != "u-maya" {
		t.Fatalf("tie should go to earliest bid, got winner %q", got.WinnerID)
	}
}

func TestPlaceBid_AtEndRacingCloser(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()
	insertAuction(t, db, liveAuction("auc-1", 50000, 1000, now))

	if _, _, err := svc.PlaceBid("auc-1", "u-maya", 51000, now); err != nil {
		t.Fatal(err)
	}

	// Past the end time, bids and the sweep race each other.
	after := now.Add(2 * time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.PlaceBid("auc-1", "u-arun", 60000+float64(i)*1000, after)
			if !errors.Is(err, domain.ErrInvalidState) {
				t.Errorf("late bid: want ErrInvalidState, got %v", err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.CloseExpiredAuctions(after)
	}()
	wg.Wait()

	// Only the in-time bid counts, whichever interleaving happened.
	svc.CloseExpiredAuctions(after)
	a, err := repos.NewAuctionRepo(db).Get("auc-1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != domain.StatusEnded || a.WinnerID != "u-maya" || a.CurrentBid != 51000 || a.BidCount != 1 {
		t.Fatalf("late bids leaked into the result: %+v", a)
	}
}

func TestEndNow_WinnerMatchesAcceptedBid(t *testing.T) {
	// Close and bid contend for the same auction; either the bid lands
	// before the winner is picked (and wins) or the close shuts it out.
	// No interleaving may end the auction with current_bid above the
	// recorded winner's bid.
	for i := 0; i < 20; i++ {
		svc, db := newAuctionSvc(t)
		now := time.Now().UTC()
		insertAuction(t, db, liveAuction("auc-1", 50000, 1000, now))
		if _, _, err := svc.PlaceBid("auc-1", "u-maya", 51000, now); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		var bidErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, bidErr = svc.PlaceBid("auc-1", "u-arun", 52000, now)
		}()
		go func() {
			defer wg.Done()
			if err := svc.EndNow("auc-1", now); err != nil {
				t.Errorf("end now: %v", err)
			}
		}()
		wg.Wait()

		a, err := repos.NewAuctionRepo(db).Get("auc-1")
		if err != nil {
			t.Fatal(err)
		}
		if a.Status != domain.StatusEnded {
			t.Fatalf("want ended, got %+v", a)
		}
		if bidErr == nil {
			if a.WinnerID != "u-arun" || a.CurrentBid != 52000 {
				t.Fatalf("accepted bid not reflected in winner: %+v", a)
			}
		} else {
			if !errors.Is(bidErr, domain.ErrInvalidState) && !errors.Is(bidErr, domain.ErrConflict) {
				t.Fatalf("shut-out bid: want InvalidState or Conflict, got %v", bidErr)
			}
			if a.WinnerID != "u-maya" || a.CurrentBid != 51000 {
				t.Fatalf("rejected bid still moved the auction: %+v", a)
			}
		}
	}
}

func TestNextMinimum(t *testing.T) {
	// 50000.1 + 0.2 drifts under raw float64 addition; the engine and the
	// polling hint must both land on the decimal sum.
	if got := services.NextMinimum(50000.1, 0.2); got != 50000.3 {
		t.Fatalf("want 50000.3, got %v", got)
	}
	if got := services.NextMinimum(50000, 1000); got != 51000 {
		t.Fatalf("want 51000, got %v", got)
	}
}

func TestCreateAuction(t *testing.T) {
	svc, _ := newAuctionSvc(t)
	now := time.Now().UTC()

	a, err := svc.CreateAuction("gem-1", 50000, 0, now.Add(-time.Hour), now.Add(time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != domain.StatusLive || a.CurrentBid != 50000 || a.MinIncrement != 1000 {
		t.Fatalf("unexpected auction: %+v", a)
	}

	// One open auction per gem
	if _, err := svc.CreateAuction("gem-1", 60000, 0, now, now.Add(time.Hour), now); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict for second open auction, got %v", err)
	}

	// Window sanity
	if _, err := svc.CreateAuction("gem-2", 60000, 0, now.Add(time.Hour), now.Add(time.Hour), now); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation for empty window, got %v", err)
	}
	if _, err := svc.CreateAuction("gem-2", 60000, 0, now.Add(-2*time.Hour), now.Add(-time.Hour), now); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("want ErrValidation for already-over window, got %v", err)
	}
	if _, err := svc.CreateAuction("gem-missing", 60000, 0, now, now.Add(time.Hour), now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown gem, got %v", err)
	}
}

func TestSyncUpcomingPromotesDueAuctions(t *testing.T) {
	svc, db := newAuctionSvc(t)
	now := time.Now().UTC()

	a := liveAuction("auc-1", 50000, 1000, now)
	a.Status = domain.StatusUpcoming // stale read model: start time already passed
	insertAuction(t, db, a)

	svc.SyncUpcoming(now)

	got, _ := repos.NewAuctionRepo(db).Get("auc-1")
	if got.Status != domain.StatusLive {
		t.Fatalf("want live after promotion, got %s", got.Status)
	}
	// Bids are accepted either way; the stored column is only a read model.
	if _, _, err := svc.PlaceBid("auc-1", "u-maya", 51000, now); err != nil {
		t.Fatal(err)
	}
}
