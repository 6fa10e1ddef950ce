// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the magpie ingestion
// pipeline: upstream candidates, persisted papers, and configuration.
package types

import "time"

// Candidate is a paper metadata record returned by the upstream query and
// not yet known to be ingested. It carries everything the pipeline needs to
// either skip the paper or process it fully.
type Candidate struct {
	// EntryID is the upstream abstract-page identifier
	// (e.g. "http://arxiv.org/abs/2301.07041v1").
	EntryID string `json:"entry_id" yaml:"entry_id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, verbatim.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the upstream publication timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// PDFURL is the canonical document URL and the dedupe key.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// Categories lists the subject categories reported by the source.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// PublishedDate returns the publication date as an ISO 8601 calendar date.
// A zero Published time yields an empty string.
func (c Candidate) PublishedDate() string {
	if c.Published.IsZero() {
		return ""
	}
	return c.Published.UTC().Format(DateLayout)
}
