package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	DBDSN    string
	MediaDir string
	LogFile  string

	// MinIncrement is the default smallest amount a new bid must exceed the
	// current bid by; new auctions are created with it unless overridden.
	MinIncrement float64
	// CloseInterval is how often the background closer sweeps auctions.
	CloseInterval time.Duration
	// BidLockWait bounds how long a bid may wait for the per-auction lock.
	BidLockWait time.Duration
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "kitgems.db" // sqlite file in project root
	}
	media := os.Getenv("MEDIA_DIR")
	if media == "" {
		media = "./web/media"
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./kitgems.log"
	}

	minInc := 1000.0
	if v := os.Getenv("MIN_INCREMENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			minInc = f
		}
	}
	closeEvery := 2 * time.Second
	if v := os.Getenv("CLOSE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			closeEvery = d
		}
	}
	lockWait := 500 * time.Millisecond
	if v := os.Getenv("BID_LOCK_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			lockWait = d
		}
	}

	cfg := Config{
		Port: port, DBDSN: dsn, MediaDir: media, LogFile: logFile,
		MinIncrement: minInc, CloseInterval: closeEvery, BidLockWait: lockWait,
	}
	log.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s MIN_INCREMENT=%.2f CLOSE_INTERVAL=%s",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogFile, cfg.MinIncrement, cfg.CloseInterval)
	return cfg
}
