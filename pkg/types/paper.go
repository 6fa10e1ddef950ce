// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for PublishedDate.
const DateLayout = "2006-01-02"

// AuthorSeparator joins author names into the single persisted authors column.
const AuthorSeparator = ", "

// Paper is one ingested document. Records are immutable once stored.
type Paper struct {
	// ID is the surrogate identity assigned by the store on insert.
	ID int64 `json:"id" yaml:"id"`

	// Title is the paper title. Never empty.
	Title string `json:"title" yaml:"title"`

	// PublishedDate is the upstream publication date (YYYY-MM-DD).
	PublishedDate string `json:"published_date" yaml:"published_date"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Summary is the original abstract text.
	Summary string `json:"summary" yaml:"summary"`

	// PDFURL is the canonical document URL, unique across all records.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// AISummary is the brief bullet-point digest generated from Summary,
	// or a fixed placeholder when generation failed.
	AISummary string `json:"ai_summary" yaml:"ai_summary"`

	// DetailedSummary is the analytical digest generated from the full text,
	// or a fixed placeholder when extraction or generation failed.
	DetailedSummary string `json:"detailed_summary" yaml:"detailed_summary"`

	// FetchedAt is the ingestion timestamp set by the store.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// AuthorsField returns the authors serialized as one delimited text value.
func (p Paper) AuthorsField() string {
	return strings.Join(p.Authors, AuthorSeparator)
}

// SplitAuthors parses a persisted authors column back into names.
func SplitAuthors(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, AuthorSeparator)
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// PaperFromCandidate copies the upstream metadata of c into a new Paper.
// The AI summary fields are left for the caller to fill.
func PaperFromCandidate(c Candidate) Paper {
	authors := make([]string, len(c.Authors))
	copy(authors, c.Authors)
	return Paper{
		Title:         c.Title,
		PublishedDate: c.PublishedDate(),
		Authors:       authors,
		Summary:       c.Abstract,
		PDFURL:        c.PDFURL,
	}
}
