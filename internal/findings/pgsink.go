package findings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PGSink persists findings to Postgres for long campaigns where operators
// query results while the fuzzer keeps running.
type PGSink struct {
	dsn string
	db  *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS findings (
	id         UUID PRIMARY KEY,
	iteration  BIGINT NOT NULL,
	verdict    TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

const pgInsert = `
INSERT INTO findings (id, iteration, verdict, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

// NewPGSink creates a sink that connects on Start using the DSN.
func NewPGSink(dsn string) *PGSink {
	return &PGSink{dsn: dsn}
}

// NewPGSinkWithDB wraps an existing connection; used by tests.
func NewPGSinkWithDB(db *sql.DB) *PGSink {
	return &PGSink{db: db}
}

func (s *PGSink) Name() string { return "postgres" }

func (s *PGSink) Start(ctx context.Context) error {
	if s.db == nil {
		db, err := sql.Open("postgres", s.dsn)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return fmt.Errorf("pinging postgres: %w", err)
		}
		s.db = db
	}
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensuring findings table: %w", err)
	}
	return nil
}

func (s *PGSink) Record(f *Finding) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding finding: %w", err)
	}
	if _, err := s.db.Exec(pgInsert, f.ID, f.Iteration, f.Verdict, payload, f.At); err != nil {
		return fmt.Errorf("inserting finding: %w", err)
	}
	return nil
}

func (s *PGSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
