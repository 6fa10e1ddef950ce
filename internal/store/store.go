// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists ingested papers in SQLite. The pdf_url column is
// unique and is the deduplication key; rows are never updated or deleted.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/magpie/pkg/types"
)

var (
	// ErrNotFound is returned when no paper has the requested id.
	ErrNotFound = errors.New("paper not found")

	// ErrDuplicate is returned when an insert collides with an existing pdf_url.
	ErrDuplicate = errors.New("paper with this PDF URL already exists")

	// ErrInvalidPaper is returned when an insert is missing a required field.
	ErrInvalidPaper = errors.New("invalid paper")
)

// Store manages the papers database.
type Store struct {
	db          *sql.DB
	recentLimit int
}

// Open opens or creates the SQLite database at cfg.Path and ensures the
// schema exists. The store holds a single connection.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultStoreConfig().Path
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", path, err)
	}

	recentLimit := cfg.RecentLimit
	if recentLimit <= 0 {
		recentLimit = types.DefaultStoreConfig().RecentLimit
	}

	s := &Store{db: db, recentLimit: recentLimit}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			published_date TEXT,
			authors TEXT,
			summary TEXT,
			pdf_url TEXT NOT NULL UNIQUE,
			ai_summary TEXT NOT NULL,
			detailed_summary TEXT NOT NULL,
			fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_fetched_at ON papers(fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published_date ON papers(published_date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Exists reports whether a paper with pdfURL has been stored.
func (s *Store) Exists(ctx context.Context, pdfURL string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM papers WHERE pdf_url = ? LIMIT 1`, pdfURL,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking paper existence: %w", err)
	}
	return true, nil
}

// Insert stores p and returns its new id. p.ID and p.FetchedAt are ignored;
// the database assigns both. A pdf_url collision returns an error wrapping
// ErrDuplicate and leaves the existing row untouched.
func (s *Store) Insert(ctx context.Context, p types.Paper) (int64, error) {
	if err := validate(p); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (title, published_date, authors, summary, pdf_url, ai_summary, detailed_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.PublishedDate, p.AuthorsField(), p.Summary,
		p.PDFURL, p.AISummary, p.DetailedSummary,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("inserting %s: %w", p.PDFURL, ErrDuplicate)
		}
		return 0, fmt.Errorf("inserting %s: %w", p.PDFURL, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// Count returns the number of stored papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

func validate(p types.Paper) error {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(p.PDFURL) == "" {
		missing = append(missing, "pdf_url")
	}
	if strings.TrimSpace(p.AISummary) == "" {
		missing = append(missing, "ai_summary")
	}
	if strings.TrimSpace(p.DetailedSummary) == "" {
		missing = append(missing, "detailed_summary")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPaper, strings.Join(missing, ", "))
	}
	return nil
}

// sqliteTime scans a TIMESTAMP column whether the driver hands back a
// time.Time or the raw CURRENT_TIMESTAMP text.
type sqliteTime struct {
	time.Time
}

func (t *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqliteTime) parse(v string) error {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if ts, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	return fmt.Errorf("parsing timestamp %q", v)
}
