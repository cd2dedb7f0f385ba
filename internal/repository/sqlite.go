package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"factorbt/types"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	factor     TEXT    NOT NULL,
	start_date TEXT    NOT NULL,
	end_date   TEXT    NOT NULL,
	tickers    TEXT    NOT NULL,
	tc_bps     REAL    NOT NULL,
	lag        INTEGER NOT NULL,
	summary    TEXT    NOT NULL,
	created_at TEXT    NOT NULL
)`

// RunStore keeps the history of completed backtests in SQLite.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (or creates) the database at dbPath.
func NewRunStore(ctx context.Context, dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// SaveRun appends a run. The summary is stored as JSON so undefined
// statistics survive as null.
func (s *RunStore) SaveRun(ctx context.Context, run types.RunRecord) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (factor, start_date, end_date, tickers, tc_bps, lag, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Factor,
		formatTime(run.Start),
		formatTime(run.End),
		strings.Join(run.Tickers, ","),
		run.TcBps,
		run.Lag,
		string(summary),
		formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	query := `SELECT factor, start_date, end_date, tickers, tc_bps, lag, summary, created_at
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			run                          types.RunRecord
			start, end, tickers, created string
			summary                      string
		)
		if err := rows.Scan(&run.Factor, &start, &end, &tickers, &run.TcBps, &run.Lag, &summary, &created); err != nil {
			return nil, err
		}
		if run.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if run.End, err = parseTime(end); err != nil {
			return nil, err
		}
		if run.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if tickers != "" {
			run.Tickers = strings.Split(tickers, ",")
		}
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
