package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/numgate/numgate/pkg/domain/history"
)

// SQLiteHistory persists the per-user search history. Each append trims the
// user's rows down to the configured bound, oldest first.
type SQLiteHistory struct {
	db           *sql.DB
	perUserLimit int
}

var _ history.Repository = (*SQLiteHistory)(nil)

func NewSQLiteHistory(path string, perUserLimit int) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteHistory{db: db, perUserLimit: perUserLimit}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			number TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_user ON queries(user_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_number ON queries(number)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteHistory) Append(ctx context.Context, e history.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (user_id, username, number, created_at) VALUES (?, ?, ?, ?)`,
		e.UserID, e.Username, e.Number, e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	// FIFO trim: keep only the most recent rows for this user.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM queries WHERE user_id = ? AND id NOT IN (
			SELECT id FROM queries WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`,
		e.UserID, e.UserID, s.perUserLimit,
	)
	return err
}

func (s *SQLiteHistory) Recent(ctx context.Context, userID int64, limit int) ([]history.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, number, created_at FROM queries
		 WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var e history.Entry
		var createdAt string
		if err := rows.Scan(&e.UserID, &e.Username, &e.Number, &createdAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteHistory) TopNumbers(ctx context.Context, limit int) ([]history.NumberCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, COUNT(*) AS c FROM queries GROUP BY number ORDER BY c DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []history.NumberCount
	for rows.Next() {
		var nc history.NumberCount
		if err := rows.Scan(&nc.Number, &nc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, nc)
	}
	return counts, rows.Err()
}

func (s *SQLiteHistory) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&n)
	return n, err
}

func (s *SQLiteHistory) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queries WHERE created_at >= ?`,
		t.UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
