package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id      TEXT    NOT NULL,
	outcome      TEXT    NOT NULL,
	board_rows   INTEGER NOT NULL,
	board_cols   INTEGER NOT NULL,
	seconds_left INTEGER NOT NULL,
	finished_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS results_finished_at ON results (finished_at);
`

// SQLiteStore implements Store in a SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if missing) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(resultsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, result Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (game_id, outcome, board_rows, board_cols, seconds_left, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.GameID, result.Outcome, result.Rows, result.Cols, result.SecondsLeft,
		result.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentResults(ctx context.Context, limit int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, outcome, board_rows, board_cols, seconds_left, finished_at
		 FROM results ORDER BY id DESC LIMIT ?`, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var (
			r          Result
			finishedAt string
		)
		if err := rows.Scan(&r.GameID, &r.Outcome, &r.Rows, &r.Cols, &r.SecondsLeft, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finishedAt, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
