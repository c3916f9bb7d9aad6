package repos

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed demo catalog and auctions if the DB is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Profiles (users)
CREATE TABLE IF NOT EXISTS profiles(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  avatar_url TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  is_admin INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_email ON profiles(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES profiles(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Gems
CREATE TABLE IF NOT EXISTS gems(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('sapphire','ruby','emerald','diamond','quartz','other')),
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
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
CREATE INDEX IF NOT EXISTS idx_gems_type       ON gems(type);
CREATE INDEX IF NOT EXISTS idx_gems_featured   ON gems(featured);
CREATE INDEX IF NOT EXISTS idx_gems_created_at ON gems(created_at);

-- Auctions
CREATE TABLE IF NOT EXISTS auctions(
  id TEXT PRIMARY KEY,
  gem_id TEXT NOT NULL REFERENCES gems(id) ON DELETE RESTRICT,
  starting_bid NUMERIC NOT NULL CHECK (starting_bid >= 0),
  current_bid NUMERIC NOT NULL,
  bid_count INTEGER NOT NULL DEFAULT 0,
  min_increment NUMERIC NOT NULL CHECK (min_increment > 0),
  start_time TEXT NOT NULL,
  end_time TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('upcoming','live','ended')),
  winner_id TEXT NULL REFERENCES profiles(id),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  CHECK (end_time > start_time)
);
CREATE INDEX IF NOT EXISTS idx_auctions_gem      ON auctions(gem_id);
CREATE INDEX IF NOT EXISTS idx_auctions_status   ON auctions(status);
CREATE INDEX IF NOT EXISTS idx_auctions_end_time ON auctions(end_time);

-- Bids (append-only; never updated or deleted)
CREATE TABLE IF NOT EXISTS bids(
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL REFERENCES auctions(id) ON DELETE RESTRICT,
  user_id TEXT NOT NULL REFERENCES profiles(id),
  amount NUMERIC NOT NULL CHECK (amount > 0),
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id, created_at);
CREATE INDEX IF NOT EXISTS idx_bids_user    ON bids(user_id);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES profiles(id),
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending'
    CHECK (status IN ('pending','processing','shipped','delivered','cancelled')),
  shipping_json TEXT NOT NULL DEFAULT '{}',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  gem_id   TEXT NOT NULL REFERENCES gems(id),
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  price NUMERIC NOT NULL,            -- captured at order time
  PRIMARY KEY (order_id, gem_id)
);

-- Cart (one row per user+gem)
CREATE TABLE IF NOT EXISTS cart(
  user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  gem_id  TEXT NOT NULL REFERENCES gems(id) ON DELETE RESTRICT,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  price_at_add NUMERIC NOT NULL,
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (user_id, gem_id)
);

-- Wishlist
CREATE TABLE IF NOT EXISTS wishlist(
  user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  gem_id  TEXT NOT NULL REFERENCES gems(id) ON DELETE RESTRICT,
  created_at TEXT,
  PRIMARY KEY (user_id, gem_id)
);

-- Reviews
CREATE TABLE IF NOT EXISTS reviews(
  id TEXT PRIMARY KEY,
  gem_id TEXT NOT NULL REFERENCES gems(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES profiles(id),
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reviews_gem ON reviews(gem_id, created_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM gems`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo gems/auctions")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO gems(id,name,type,description,price,carat,color,origin,cut,clarity,images_json,certification,in_stock,featured) VALUES
	  ('gem-kashmir-sapphire','Kashmir Blue Sapphire','sapphire','Cornflower blue sapphire with velvety saturation.',48000,4.12,'Cornflower Blue','Kashmir','Cushion','VVS1','["gems/gem-kashmir-sapphire/main.jpg"]','GIA 2215478901',1,1),
	  ('gem-burma-ruby','Burmese Pigeon Blood Ruby','ruby','Unheated pigeon blood ruby from Mogok.',62000,3.05,'Pigeon Blood','Myanmar','Oval','VS1','["gems/gem-burma-ruby/main.jpg"]','GRS 2019-045122',1,1),
	  ('gem-colombia-emerald','Colombian Muzo Emerald','emerald','Vivid green emerald, minor oil only.',35500,5.48,'Vivid Green','Colombia','Emerald','VS2','["gems/gem-colombia-emerald/main.jpg"]','',1,0),
	  ('gem-rose-quartz','Star Rose Quartz','quartz','Translucent rose quartz with asterism.',420,12.30,'Rose','Brazil','Cabochon','Translucent','["gems/gem-rose-quartz/main.jpg"]','',1,0)`)

	now := time.Now().UTC()
	live := []any{
		"auc-sapphire-weekly", "gem-kashmir-sapphire", 50000.0, 50000.0, 1000.0,
		now.Add(-1 * time.Hour).Format(time.RFC3339), now.Add(47 * time.Hour).Format(time.RFC3339), "live",
	}
	upcoming := []any{
		"auc-ruby-monthly", "gem-burma-ruby", 60000.0, 60000.0, 1000.0,
		now.Add(72 * time.Hour).Format(time.RFC3339), now.Add(96 * time.Hour).Format(time.RFC3339), "upcoming",
	}
	for _, a := range [][]any{live, upcoming} {
		tx.MustExec(`INSERT INTO auctions(id,gem_id,starting_bid,current_bid,min_increment,start_time,end_time,status)
		  VALUES(?,?,?,?,?,?,?,?)`, a...)
	}

	return tx.Commit()
}

// seedUsers ensures demo accounts and one admin exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name string
		Admin           bool
		Hash            string
	}
	mk := func(id, email, name string, admin bool, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Admin: admin, Hash: string(h)}
	}

	users := []u{
		mk("u-maya", "maya@kitgems.test", "Maya Chen", false, "Passw0rd!"),
		mk("u-arun", "arun@kitgems.test", "Arun Patel", false, "Passw0rd!"),
		mk("u-admin", "admin@kitgems.test", "KIT Admin", true, "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO profiles(id,email,full_name,password_hash,is_admin)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Admin); err != nil {
			return err
		}
	}

	return tx.Commit()
}
