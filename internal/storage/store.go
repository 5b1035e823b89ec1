package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"offerlens/internal/config"
	"offerlens/internal/model"
)

const memberDateLayout = "2006-01-02"

type Store interface {
	Init(ctx context.Context) error
	Close() error
	// ReplaceRows swaps the whole enriched table in one transaction.
	ReplaceRows(ctx context.Context, rows []model.EnrichedRow) error
	LoadRows(ctx context.Context, onlyMatched bool) ([]model.EnrichedRow, error)
	SaveRun(ctx context.Context, run model.RunRecord) (model.RunRecord, error)
	LatestRun(ctx context.Context) (model.RunRecord, bool, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type dialect struct {
	schema      []string
	placeholder func(n int) string
	timeValue   func(t time.Time) any
}

type baseStore struct {
	db      *sql.DB
	dialect dialect
}

var rowColumns = []string{
	"global_index", "customer_id", "event_kind", "offer_id", "amount", "reward", "time",
	"completed_and_viewed", "received_and_completed", "influenced_transaction",
	"completed_transaction_return", "completed_transaction_qty", "net_return",
	"gender", "age", "income", "became_member_on", "age_range", "income_range",
	"offer_type", "difficulty", "duration", "reward_portfolio",
	"channel_web", "channel_email", "channel_mobile", "channel_social",
}

func (b *baseStore) Init(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	for _, stmt := range b.dialect.schema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = b.dialect.placeholder(i + 1)
	}
	return strings.Join(out, ", ")
}

func (b *baseStore) ReplaceRows(ctx context.Context, rows []model.EnrichedRow) error {
	if b.db == nil {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enriched_events`); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO enriched_events (%s) VALUES (%s)`,
		strings.Join(rowColumns, ", "), b.placeholders(len(rowColumns))))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, rowValues(r)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d: %w", r.GlobalIndex, err)
		}
	}
	return tx.Commit()
}

func rowValues(r model.EnrichedRow) []any {
	return []any{
		r.GlobalIndex, r.CustomerID, string(r.Kind), r.OfferID, nullFloat(r.Amount), nullFloat(r.Reward), r.Time,
		r.CompletedAndViewed, r.ReceivedAndCompleted, r.InfluencedTransaction,
		r.CompletedTransactionReturn, r.CompletedTransactionQty, r.NetReturn,
		r.Gender, r.Age, r.Income, formatMemberDate(r.MemberSince), r.AgeRange, r.IncomeRange,
		r.OfferType, r.Difficulty, r.Duration, r.PortfolioReward,
		r.ChannelWeb, r.ChannelEmail, r.ChannelMobile, r.ChannelSocial,
	}
}

func (b *baseStore) LoadRows(ctx context.Context, onlyMatched bool) ([]model.EnrichedRow, error) {
	if b.db == nil {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM enriched_events`, strings.Join(rowColumns, ", "))
	var args []any
	if onlyMatched {
		query += ` WHERE completed_and_viewed = ` + b.dialect.placeholder(1)
		args = append(args, true)
	}
	query += ` ORDER BY global_index`
	rs, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []model.EnrichedRow
	for rs.Next() {
		var (
			r           model.EnrichedRow
			kind        string
			amount      sql.NullFloat64
			reward      sql.NullFloat64
			memberSince string
		)
		if err := rs.Scan(
			&r.GlobalIndex, &r.CustomerID, &kind, &r.OfferID, &amount, &reward, &r.Time,
			&r.CompletedAndViewed, &r.ReceivedAndCompleted, &r.InfluencedTransaction,
			&r.CompletedTransactionReturn, &r.CompletedTransactionQty, &r.NetReturn,
			&r.Gender, &r.Age, &r.Income, &memberSince, &r.AgeRange, &r.IncomeRange,
			&r.OfferType, &r.Difficulty, &r.Duration, &r.PortfolioReward,
			&r.ChannelWeb, &r.ChannelEmail, &r.ChannelMobile, &r.ChannelSocial,
		); err != nil {
			return nil, err
		}
		r.Kind = model.EventKind(kind)
		if amount.Valid {
			v := amount.Float64
			r.Amount = &v
		}
		if reward.Valid {
			v := reward.Float64
			r.Reward = &v
		}
		if memberSince != "" {
			if t, err := time.Parse(memberDateLayout, memberSince); err == nil {
				r.MemberSince = t
			}
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func (b *baseStore) SaveRun(ctx context.Context, run model.RunRecord) (model.RunRecord, error) {
	if b.db == nil {
		return run, nil
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO attribution_runs (id, started_at, finished_at, events, customers, failed) VALUES (%s)`,
		b.placeholders(6)),
		run.ID,
		b.dialect.timeValue(run.StartedAt.UTC()),
		b.dialect.timeValue(run.FinishedAt.UTC()),
		run.Events,
		run.Customers,
		run.Failed,
	)
	return run, err
}

func (b *baseStore) LatestRun(ctx context.Context) (model.RunRecord, bool, error) {
	if b.db == nil {
		return model.RunRecord{}, false, nil
	}
	var (
		run               model.RunRecord
		started, finished any
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, events, customers, failed FROM attribution_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&run.ID, &started, &finished, &run.Events, &run.Customers, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, false, nil
	}
	if err != nil {
		return model.RunRecord{}, false, err
	}
	if run.StartedAt, err = parseTimeValue(started); err != nil {
		return model.RunRecord{}, false, err
	}
	if run.FinishedAt, err = parseTimeValue(finished); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func formatMemberDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(memberDateLayout)
}

func parseTimeValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time value %T", v)
}
