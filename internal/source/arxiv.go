// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source queries the arXiv API for candidate papers matching a
// topical filter, most recently submitted first.
package source

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/magpie/internal/httputil"
	"github.com/pdiddy/magpie/pkg/types"
)

// ErrMalformedEntry marks a feed entry that lacks the fields needed to
// process it. Enumeration continues past such entries.
var ErrMalformedEntry = errors.New("malformed arXiv entry")

// Client queries the arXiv API.
type Client struct {
	cfg  types.SourceConfig
	http *http.Client
	log  *zap.Logger
}

// New returns a Client for cfg. A nil httpClient gets one bounded by
// cfg.Timeout; a nil logger disables logging.
func New(cfg types.SourceConfig, httpClient *http.Client, log *zap.Logger) *Client {
	def := types.DefaultSourceConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Query == "" {
		cfg.Query = def.Query
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, log: log.Named("source")}
}

// Candidates returns the candidate papers for the configured query, newest
// submission first, capped at MaxResults. Pages are requested lazily as the
// caller iterates; stopping early issues no further requests.
//
// A malformed entry yields an error wrapping ErrMalformedEntry and
// enumeration continues. A failed page request yields its error and ends
// the sequence.
func (c *Client) Candidates(ctx context.Context) iter.Seq2[types.Candidate, error] {
	return func(yield func(types.Candidate, error) bool) {
		remaining := c.cfg.MaxResults
		start := 0

		for remaining > 0 {
			if start > 0 && c.cfg.PageDelay > 0 {
				select {
				case <-ctx.Done():
					yield(types.Candidate{}, ctx.Err())
					return
				case <-time.After(c.cfg.PageDelay):
				}
			}

			size := min(c.cfg.PageSize, remaining)
			entries, err := c.fetchPage(ctx, start, size)
			if err != nil {
				yield(types.Candidate{}, err)
				return
			}
			if len(entries) > size {
				entries = entries[:size]
			}
			c.log.Debug("fetched page", zap.Int("start", start), zap.Int("entries", len(entries)))

			for _, entry := range entries {
				cand, err := toCandidate(entry)
				if !yield(cand, err) {
					return
				}
			}

			if len(entries) < size {
				return
			}
			remaining -= len(entries)
			start += len(entries)
		}
	}
}

// fetchPage requests one page of results starting at offset start.
func (c *Client) fetchPage(ctx context.Context, start, size int) ([]arxivEntry, error) {
	params := url.Values{}
	params.Set("search_query", c.cfg.Query)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(size))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries, c.log)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed.Entries, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// toCandidate maps a feed entry to a Candidate.
func toCandidate(e arxivEntry) (types.Candidate, error) {
	c := types.Candidate{
		EntryID:  strings.TrimSpace(e.ID),
		Title:    collapseSpace(e.Title),
		Abstract: strings.TrimSpace(e.Summary),
		PDFURL:   pdfLink(e),
	}
	if c.Title == "" {
		return c, fmt.Errorf("%w: %s has no title", ErrMalformedEntry, c.EntryID)
	}
	if c.PDFURL == "" {
		return c, fmt.Errorf("%w: %q has no PDF link", ErrMalformedEntry, c.Title)
	}

	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	for _, cat := range e.Categories {
		if cat.Term != "" {
			c.Categories = append(c.Categories, cat.Term)
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		c.Published = t
	}
	return c, nil
}

// pdfLink returns the entry's PDF link, falling back to the /pdf/ form of
// its abstract URL.
func pdfLink(e arxivEntry) string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return strings.TrimSpace(l.Href)
		}
	}
	id := strings.TrimSpace(e.ID)
	if strings.Contains(id, "/abs/") {
		return strings.Replace(id, "/abs/", "/pdf/", 1)
	}
	return ""
}

// collapseSpace trims s and folds internal whitespace runs (arXiv wraps
// long titles across lines) into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
