package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS round_records (
	session_id       TEXT NOT NULL,
	round_number     INTEGER NOT NULL,
	phase            TEXT NOT NULL,
	recorded_at      TEXT NOT NULL,
	resolution_rate  REAL NOT NULL,
	consensus        INTEGER NOT NULL,
	payload          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_round_records_session
	ON round_records (session_id, round_number);
`

// Store archives terminal session trails in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed initializes) the archive at path. Use
// ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Archive writes the trail's records in one transaction. Archiving the same
// session twice appends; trails are immutable so callers archive once at
// terminal state.
func (s *Store) Archive(ctx context.Context, trail *Trail) error {
	if trail == nil {
		return fmt.Errorf("nil trail")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO round_records
			(session_id, round_number, phase, recorded_at, resolution_rate, consensus, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range trail.Records() {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode round record: %w", err)
		}

		consensus := 0
		if rec.ConsensusReached {
			consensus = 1
		}

		if _, err := stmt.ExecContext(ctx,
			trail.SessionID(), rec.RoundNumber, rec.Phase,
			rec.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
			rec.ResolutionRate, consensus, string(payload),
		); err != nil {
			return fmt.Errorf("failed to insert round record: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSession reads back the archived records for a session in round and
// append order.
func (s *Store) LoadSession(ctx context.Context, sessionID string) ([]RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM round_records
		WHERE session_id = ?
		ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []RoundRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan round record: %w", err)
		}
		var rec RoundRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode round record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
