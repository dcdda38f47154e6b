package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourorg/rentradar/internal/budget"
	"github.com/yourorg/rentradar/internal/events"
	"github.com/yourorg/rentradar/internal/listing"
)

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seen_listings (
            listing_id    TEXT PRIMARY KEY,
            first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE TABLE IF NOT EXISTS send_budget (
            id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
            day        DATE NOT NULL,
            sent       INT NOT NULL DEFAULT 0,
            day_limit  INT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE TABLE IF NOT EXISTS lead_outcomes (
            id          BIGSERIAL PRIMARY KEY,
            listing_id  TEXT NOT NULL,
            area        TEXT NOT NULL,
            status      TEXT NOT NULL,
            rag         TEXT,
            score10     NUMERIC(3,1),
            profit_70   INT,
            reason      TEXT,
            occurred_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_occurred ON lead_outcomes(occurred_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_listing ON lead_outcomes(listing_id);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) IsSeen(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM seen_listings WHERE listing_id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) MarkSeen(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO seen_listings (listing_id) VALUES ($1) ON CONFLICT (listing_id) DO NOTHING`, id)
	return err
}

func (s *Store) LoadBudget(ctx context.Context) (budget.State, bool, error) {
	var st budget.State
	var day time.Time
	err := s.DB.QueryRowContext(ctx, `SELECT day, sent, day_limit FROM send_budget WHERE id=1`).Scan(&day, &st.Sent, &st.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	st.Day = day.Format("2006-01-02")
	return st, true, nil
}

func (s *Store) SaveBudget(ctx context.Context, st budget.State) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO send_budget (id, day, sent, day_limit, updated_at)
        VALUES (1, $1::date, $2, $3, now())
        ON CONFLICT (id)
        DO UPDATE SET day=EXCLUDED.day, sent=EXCLUDED.sent, day_limit=EXCLUDED.day_limit, updated_at=now()`,
		st.Day, st.Sent, st.Limit,
	)
	return err
}

func (s *Store) RecordOutcome(ctx context.Context, o events.LeadOutcome) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO lead_outcomes (listing_id, area, status, rag, score10, profit_70, reason, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.Area, string(o.Status), nullString(string(o.Tier)), o.Score, o.Profit70, nullString(o.Reason), o.At,
	)
	return err
}

// RecentOutcomes returns the newest outcomes first.
func (s *Store) RecentOutcomes(ctx context.Context, limit int) ([]events.LeadOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
        SELECT listing_id, area, status, COALESCE(rag, ''), COALESCE(score10, 0), COALESCE(profit_70, 0), COALESCE(reason, ''), occurred_at
        FROM lead_outcomes
        ORDER BY occurred_at DESC, id DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.LeadOutcome
	for rows.Next() {
		var o events.LeadOutcome
		var status, rag string
		if err := rows.Scan(&o.ID, &o.Area, &status, &rag, &o.Score, &o.Profit70, &o.Reason, &o.At); err != nil {
			return nil, err
		}
		o.Status = events.Status(status)
		o.Tier = listing.Tier(rag)
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
