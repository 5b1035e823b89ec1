package storage

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/offerlens?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db, dialect: postgresDialect}}, nil
}

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS enriched_events (
			global_index BIGINT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			event_kind TEXT NOT NULL,
			offer_id TEXT NOT NULL DEFAULT '',
			amount DOUBLE PRECISION,
			reward DOUBLE PRECISION,
			time INTEGER NOT NULL DEFAULT 0,
			completed_and_viewed BOOLEAN NOT NULL DEFAULT FALSE,
			received_and_completed BOOLEAN NOT NULL DEFAULT FALSE,
			influenced_transaction BOOLEAN NOT NULL DEFAULT FALSE,
			completed_transaction_return DOUBLE PRECISION NOT NULL DEFAULT 0,
			completed_transaction_qty INTEGER NOT NULL DEFAULT 0,
			net_return DOUBLE PRECISION NOT NULL DEFAULT 0,
			gender TEXT NOT NULL DEFAULT '',
			age INTEGER NOT NULL DEFAULT 0,
			income DOUBLE PRECISION NOT NULL DEFAULT 0,
			became_member_on TEXT NOT NULL DEFAULT '',
			age_range TEXT NOT NULL DEFAULT '',
			income_range TEXT NOT NULL DEFAULT '',
			offer_type TEXT NOT NULL DEFAULT '',
			difficulty DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			reward_portfolio DOUBLE PRECISION NOT NULL DEFAULT 0,
			channel_web BOOLEAN NOT NULL DEFAULT FALSE,
			channel_email BOOLEAN NOT NULL DEFAULT FALSE,
			channel_mobile BOOLEAN NOT NULL DEFAULT FALSE,
			channel_social BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_customer ON enriched_events(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_matched ON enriched_events(completed_and_viewed, offer_id)`,
		`CREATE TABLE IF NOT EXISTS attribution_runs (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			events INTEGER NOT NULL,
			customers INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
	},
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	timeValue: func(t time.Time) any {
		return t
	},
}
