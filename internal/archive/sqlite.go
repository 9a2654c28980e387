package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/soyeahso/honeypot/internal/logging"
)

// SQLite is the embedded archive backend.
type SQLite struct {
	db  *sql.DB
	log *logging.Logger
}

// OpenSQLite opens (or creates) an archive at path and runs migrations.
// Use ":memory:" for a throwaway archive.
func OpenSQLite(path string, log *logging.Logger) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	s := &SQLite{db: db, log: log.Sub("archive")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.log.Info().Str("driver", "sqlite").Str("path", path).Msg("archive opened")
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&n); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if n > 0 {
			continue
		}

		s.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// Save upserts a record.
func (s *SQLite) Save(ctx context.Context, r Record) error {
	report := string(r.Report)
	if report == "" {
		report = "{}"
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(upsertSQL, strings.TrimSuffix(strings.Repeat("?, ", 11), ", ")),
		r.SessionID, r.ScamDetected, r.ScamType, r.Confidence, r.Grade, r.Score,
		r.TurnCount, r.MessageCount, r.ExitReason, r.EndedAt.UTC().Format(timeLayout), report,
	)
	if err != nil {
		return fmt.Errorf("saving engagement %s: %w", r.SessionID, err)
	}
	return nil
}

// Get returns one record or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, sessionID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM engagements WHERE session_id = ?", sessionID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// List returns records newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	q := "SELECT " + selectColumns + " FROM engagements ORDER BY ended_at DESC, session_id"
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
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
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	st := newStats()
	rows, err := s.db.QueryContext(ctx, "SELECT scam_detected, scam_type, grade FROM engagements")
	if err != nil {
		return st, fmt.Errorf("archive stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scam bool
		var scamType, grade string
		if err := rows.Scan(&scam, &scamType, &grade); err != nil {
			return st, err
		}
		st.Total++
		st.ByGrade[grade]++
		if scam {
			st.Scams++
			st.ByType[scamType]++
		}
	}
	return st, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var r Record
	var endedAt, report string
	err := sc.Scan(&r.SessionID, &r.ScamDetected, &r.ScamType, &r.Confidence, &r.Grade, &r.Score,
		&r.TurnCount, &r.MessageCount, &r.ExitReason, &endedAt, &report)
	if err != nil {
		return Record{}, err
	}
	r.EndedAt, _ = time.Parse(timeLayout, endedAt)
	r.Report = []byte(report)
	return r, nil
}
