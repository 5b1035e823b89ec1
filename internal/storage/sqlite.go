package storage

import (
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:offerlens.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer keeps the table replace from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &sqliteStore{baseStore{db: db, dialect: sqliteDialect}}, nil
}

var sqliteDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS enriched_events (
			global_index INTEGER PRIMARY KEY,
			customer_id TEXT NOT NULL,
			event_kind TEXT NOT NULL,
			offer_id TEXT NOT NULL DEFAULT '',
			amount REAL,
			reward REAL,
			time INTEGER NOT NULL DEFAULT 0,
			completed_and_viewed INTEGER NOT NULL DEFAULT 0,
			received_and_completed INTEGER NOT NULL DEFAULT 0,
			influenced_transaction INTEGER NOT NULL DEFAULT 0,
			completed_transaction_return REAL NOT NULL DEFAULT 0,
			completed_transaction_qty INTEGER NOT NULL DEFAULT 0,
			net_return REAL NOT NULL DEFAULT 0,
			gender TEXT NOT NULL DEFAULT '',
			age INTEGER NOT NULL DEFAULT 0,
			income REAL NOT NULL DEFAULT 0,
			became_member_on TEXT NOT NULL DEFAULT '',
			age_range TEXT NOT NULL DEFAULT '',
			income_range TEXT NOT NULL DEFAULT '',
			offer_type TEXT NOT NULL DEFAULT '',
			difficulty REAL NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			reward_portfolio REAL NOT NULL DEFAULT 0,
			channel_web INTEGER NOT NULL DEFAULT 0,
			channel_email INTEGER NOT NULL DEFAULT 0,
			channel_mobile INTEGER NOT NULL DEFAULT 0,
			channel_social INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_customer ON enriched_events(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_matched ON enriched_events(completed_and_viewed, offer_id)`,
		`CREATE TABLE IF NOT EXISTS attribution_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			events INTEGER NOT NULL,
			customers INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
	},
	placeholder: func(int) string { return "?" },
	timeValue: func(t time.Time) any {
		return t.Format(sqliteTimeLayout)
	},
}
