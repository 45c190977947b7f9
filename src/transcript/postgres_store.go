package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records in Postgres.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the turns table exists.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	ps := &PostgresStore{DB: db}
	if err := ps.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := ps.DB.Exec(ctx, `
                CREATE TABLE IF NOT EXISTS conversation_turns (
                        turn_id    TEXT PRIMARY KEY,
                        session_id TEXT NOT NULL,
                        utterance  TEXT NOT NULL,
                        state      TEXT NOT NULL,
                        reason     TEXT NOT NULL DEFAULT '',
                        location   TEXT NOT NULL DEFAULT '',
                        selected   TEXT[] NOT NULL DEFAULT '{}',
                        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
                );
                CREATE INDEX IF NOT EXISTS conversation_turns_session_idx
                        ON conversation_turns (session_id, created_at DESC);
        `)
	return err
}

func (ps *PostgresStore) Record(ctx context.Context, rec Record) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := ps.DB.Exec(ctx, `
                INSERT INTO conversation_turns (turn_id, session_id, utterance, state, reason, location, selected, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                ON CONFLICT (turn_id) DO NOTHING;
        `, rec.TurnID, rec.SessionID, rec.Utterance, rec.State, rec.Reason, rec.Location, rec.Selected, rec.CreatedAt)
	return err
}

func (ps *PostgresStore) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := ps.DB.Query(ctx, `
                SELECT turn_id, session_id, utterance, state, reason, location, selected, created_at
                FROM conversation_turns
                WHERE session_id = $1
                ORDER BY created_at DESC
                LIMIT $2;
        `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.TurnID, &rec.SessionID, &rec.Utterance, &rec.State, &rec.Reason, &rec.Location, &rec.Selected, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Close(context.Context) error {
	if ps != nil && ps.DB != nil {
		ps.DB.Close()
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
