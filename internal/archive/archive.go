// Package archive persists rendered reports in a SQLite database.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"news_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Report is one archived render result.
type Report struct {
	ID           int64
	CreatedAt    time.Time
	Editor       string
	Document     string
	WarningCount int
	NoteCount    int
}

// Archive stores rendered reports backed by a SQLite database.
type Archive struct {
	db *sql.DB
}

// Open opens a SQLite database at dsn and runs pending migrations.
func Open(dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save inserts a report and populates its ID and CreatedAt.
func (a *Archive) Save(ctx context.Context, r *Report) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := a.db.ExecContext(ctx,
		`INSERT INTO reports (created_at, editor, document, warning_count, note_count)
		 VALUES (?, ?, ?, ?, ?)`,
		now, r.Editor, r.Document, r.WarningCount, r.NoteCount,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListRecent returns the newest reports, newest first, capped at limit.
func (a *Archive) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, created_at, editor, document, warning_count, note_count
		 FROM reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []Report
	for rows.Next() {
		var r Report
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Editor, &r.Document, &r.WarningCount, &r.NoteCount); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
