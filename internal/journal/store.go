package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS erepbot;
CREATE TABLE IF NOT EXISTS erepbot.journal (
	id UUID PRIMARY KEY,
	at TIMESTAMPTZ NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS journal_at_idx ON erepbot.journal (at DESC);
`

// PGStore keeps journal events in Postgres.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}

// Insert writes events in one transaction; already stored ids are skipped.
func (s *PGStore) Insert(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	err := s.insert(ctx, events)
	if isUndefinedTable(err) {
		if serr := s.EnsureSchema(ctx); serr != nil {
			return serr
		}
		err = s.insert(ctx, events)
	}
	return err
}

func (s *PGStore) insert(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		fields, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("encode fields for %s: %w", e.ID, err)
		}
		if e.Fields == nil {
			fields = []byte("{}")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO erepbot.journal (id, at, kind, message, fields)
			VALUES ($1, $2, $3, $4, $5::jsonb)
			ON CONFLICT (id) DO NOTHING
		`, e.ID, e.At, e.Kind, e.Message, string(fields))
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, at, kind, message, fields
		FROM erepbot.journal
		ORDER BY at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var fields []byte
		if err := rows.Scan(&e.ID, &e.At, &e.Kind, &e.Message, &fields); err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &e.Fields); err != nil {
				return nil, err
			}
		}
		e.At = e.At.In(time.UTC)
		out = append(out, e)
	}
	return out, rows.Err()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
