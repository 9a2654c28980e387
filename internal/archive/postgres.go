package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soyeahso/honeypot/internal/logging"
)

// Postgres is the shared archive backend.
type Postgres struct {
	pool *pgxpool.Pool
	log  *logging.Logger
}

// OpenPostgres connects to databaseURL, verifies the connection and runs
// migrations.
func OpenPostgres(ctx context.Context, databaseURL string, log *logging.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool, log: log.Sub("archive")}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	p.log.Info().Str("driver", "postgres").Msg("archive opened")
	return p, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var n int
		if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", m.Version).Scan(&n); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if n > 0 {
			continue
		}

		p.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := p.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ps, ", ")
}

// Save upserts a record.
func (p *Postgres) Save(ctx context.Context, r Record) error {
	report := string(r.Report)
	if report == "" {
		report = "{}"
	}
	_, err := p.pool.Exec(ctx, fmt.Sprintf(upsertSQL, placeholders(11)),
		r.SessionID, r.ScamDetected, r.ScamType, r.Confidence, r.Grade, r.Score,
		r.TurnCount, r.MessageCount, r.ExitReason, r.EndedAt.UTC().Format(timeLayout), report,
	)
	if err != nil {
		return fmt.Errorf("saving engagement %s: %w", r.SessionID, err)
	}
	return nil
}

// Get returns one record or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, sessionID string) (Record, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM engagements WHERE session_id = $1", sessionID)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// List returns records newest first.
func (p *Postgres) List(ctx context.Context, limit int) ([]Record, error) {
	q := "SELECT " + selectColumns + " FROM engagements ORDER BY ended_at DESC, session_id"
	var args []any
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing engagements: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates the archive.
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	st := newStats()
	rows, err := p.pool.Query(ctx, `
		SELECT scam_detected, scam_type, grade, COUNT(*)
		FROM engagements GROUP BY scam_detected, scam_type, grade`)
	if err != nil {
		return st, fmt.Errorf("archive stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scam bool
		var scamType, grade string
		var n int
		if err := rows.Scan(&scam, &scamType, &grade, &n); err != nil {
			return st, err
		}
		st.Total += n
		st.ByGrade[grade] += n
		if scam {
			st.Scams += n
			st.ByType[scamType] += n
		}
	}
	return st, rows.Err()
}
