// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract downloads paper PDFs and extracts their plain text.
// Failures are returned as typed results so callers can degrade instead
// of aborting.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/pdiddy/magpie/pkg/types"
)

// FailureKind classifies why text could not be extracted.
type FailureKind int

const (
	// FailureNone means extraction succeeded.
	FailureNone FailureKind = iota
	// FailureDownload covers connection errors, timeouts, non-2xx statuses
	// and oversized bodies.
	FailureDownload
	// FailureParse means the content is not a readable PDF.
	FailureParse
	// FailureEmpty means the PDF parsed but contained no extractable text.
	FailureEmpty
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureDownload:
		return "download"
	case FailureParse:
		return "parse"
	case FailureEmpty:
		return "empty"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// ErrTooLarge is returned when a download exceeds the configured size cap.
var ErrTooLarge = errors.New("PDF exceeds size limit")

// Result is the outcome of one extraction. On failure Text is empty, Kind
// says which step failed and Err carries the cause.
type Result struct {
	Text  string
	Pages int
	Kind  FailureKind
	Err   error
}

// OK reports whether text was extracted.
func (r Result) OK() bool {
	return r.Kind == FailureNone
}

// Extractor fetches PDFs over HTTP and extracts their text.
type Extractor struct {
	cfg  types.ExtractConfig
	http *http.Client
	log  *zap.Logger
}

// New returns an Extractor. The download bound comes from cfg.Timeout and
// is applied per call, so httpClient needs no timeout of its own.
func New(cfg types.ExtractConfig, httpClient *http.Client, log *zap.Logger) *Extractor {
	def := types.DefaultExtractConfig()
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{cfg: cfg, http: httpClient, log: log.Named("extract")}
}

// Extract downloads the PDF at pdfURL and returns the text of all pages
// concatenated in page order. It performs exactly one outbound request and
// never caches.
func (e *Extractor) Extract(ctx context.Context, pdfURL string) Result {
	data, err := e.download(ctx, pdfURL)
	if err != nil {
		return Result{Kind: FailureDownload, Err: err}
	}
	e.log.Debug("downloaded PDF", zap.String("pdf_url", pdfURL), zap.Int("bytes", len(data)))

	text, pages, err := PlainText(data)
	if err != nil {
		return Result{Kind: FailureParse, Pages: pages, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Result{Kind: FailureEmpty, Pages: pages, Err: fmt.Errorf("no extractable text in %d page(s)", pages)}
	}
	return Result{Text: text, Pages: pages}
}

// download fetches url within the configured timeout and size cap.
func (e *Extractor) download(ctx context.Context, url string) ([]byte, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > e.cfg.MaxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, e.cfg.MaxBytes)
	}
	return data, nil
}

// PlainText extracts the text of every page of the PDF in data and
// concatenates it in page order. Pages that cannot be decoded are skipped.
// Malformed documents that make the parser panic are reported as errors.
func PlainText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("parsing PDF: %w", err)
	}

	pages = r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(t)
	}
	return sb.String(), pages, nil
}
