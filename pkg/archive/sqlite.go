package archive

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists round records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and ensures the schema exists. The caller owns the
// connection.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureRoundSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save stores a single round record.
func (s *SQLiteStore) Save(ctx context.Context, record Record) error {
	record = normalizeRecord(record)
	result, err := encodeValue(record.Result)
	if err != nil {
		return err
	}
	score, err := encodeValue(record.Score)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rounds (
			id, session_id, turn, state, plan, result_json, score_json, advice, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.SessionID,
		record.Turn,
		record.State,
		record.Plan,
		result,
		score,
		record.Advice,
		record.CreatedAt,
	)
	return err
}

// List returns round records matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT id, session_id, turn, state, plan, result_json, score_json, advice, created_at
		FROM rounds
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.SessionID != "" {
		addFilter("session_id = ?", filter.SessionID)
	}
	if filter.State != "" {
		addFilter("state = ?", filter.State)
	}
	query += where + " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			resultJSON string
			scoreJSON  string
			created    sql.NullTime
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Turn,
			&rec.State,
			&rec.Plan,
			&resultJSON,
			&scoreJSON,
			&rec.Advice,
			&created,
		); err != nil {
			return nil, err
		}
		if out, err := decodeValue(resultJSON); err == nil {
			rec.Result = out
		}
		if out, err := decodeValue(scoreJSON); err == nil {
			rec.Score = out
		}
		if created.Valid {
			rec.CreatedAt = created.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func ensureRoundSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			state TEXT NOT NULL,
			plan TEXT,
			result_json TEXT,
			score_json TEXT,
			advice TEXT,
			created_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id);
		CREATE INDEX IF NOT EXISTS idx_rounds_state ON rounds(state);
	`)
	return err
}
