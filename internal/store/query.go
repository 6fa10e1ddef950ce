// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/magpie/pkg/types"
)

const paperColumns = `id, title, published_date, authors, summary, pdf_url,
	ai_summary, detailed_summary, fetched_at`

// Recent returns the n most recently fetched papers, newest first. n <= 0
// uses the configured default.
func (s *Store) Recent(ctx context.Context, n int) ([]types.Paper, error) {
	if n <= 0 {
		n = s.recentLimit
	}
	return s.query(ctx,
		`SELECT `+paperColumns+` FROM papers ORDER BY fetched_at DESC, id DESC LIMIT ?`, n)
}

// Get returns the paper with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (types.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Paper{}, fmt.Errorf("paper %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("looking up paper %d: %w", id, err)
	}
	return p, nil
}

// Search returns papers whose title, abstract, or detailed summary contains
// q as a substring, newest publication first. Matching follows SQLite's LIKE,
// which ignores ASCII case. Wildcard characters in q match literally.
func (s *Store) Search(ctx context.Context, q string) ([]types.Paper, error) {
	pattern := "%" + escapeLike(q) + "%"
	return s.query(ctx,
		`SELECT `+paperColumns+` FROM papers
		 WHERE title LIKE ? ESCAPE '\'
		    OR summary LIKE ? ESCAPE '\'
		    OR detailed_summary LIKE ? ESCAPE '\'
		 ORDER BY published_date DESC, id DESC`,
		pattern, pattern, pattern)
}

// All returns every stored paper in insertion order.
func (s *Store) All(ctx context.Context) ([]types.Paper, error) {
	return s.query(ctx, `SELECT `+paperColumns+` FROM papers ORDER BY id`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(r rowScanner) (types.Paper, error) {
	var (
		p         types.Paper
		published sql.NullString
		authors   sql.NullString
		summary   sql.NullString
		fetchedAt sqliteTime
	)
	if err := r.Scan(
		&p.ID, &p.Title, &published, &authors, &summary, &p.PDFURL,
		&p.AISummary, &p.DetailedSummary, &fetchedAt,
	); err != nil {
		return types.Paper{}, err
	}
	p.PublishedDate = published.String
	p.Authors = types.SplitAuthors(authors.String)
	p.Summary = summary.String
	p.FetchedAt = fetchedAt.Time
	return p, nil
}

// escapeLike escapes LIKE wildcards so q matches literally.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}
