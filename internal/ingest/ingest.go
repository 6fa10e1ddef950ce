// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest runs one ingestion pass: it enumerates candidate papers,
// skips those already stored, and for each new paper extracts full text,
// generates two summaries and persists the record.
//
// Candidates are processed one at a time in upstream order. Failures in
// extraction and summarization degrade individual fields; failures in the
// existence check or insert drop only the affected candidate.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/magpie/internal/extract"
	"github.com/pdiddy/magpie/internal/source"
	"github.com/pdiddy/magpie/internal/store"
	"github.com/pdiddy/magpie/internal/summarize"
	"github.com/pdiddy/magpie/pkg/types"
)

// CandidateSource enumerates candidate papers for a run.
type CandidateSource interface {
	Candidates(ctx context.Context) iter.Seq2[types.Candidate, error]
}

// PaperStore is the subset of the store used during ingestion.
type PaperStore interface {
	Exists(ctx context.Context, pdfURL string) (bool, error)
	Insert(ctx context.Context, p types.Paper) (int64, error)
}

// TextExtractor downloads a document and returns its plain text.
type TextExtractor interface {
	Extract(ctx context.Context, pdfURL string) extract.Result
}

// Summarizer produces the brief and detailed summaries of a paper.
type Summarizer interface {
	Brief(ctx context.Context, abstract string) summarize.Outcome
	Detailed(ctx context.Context, fullText string) summarize.Outcome
}

// ErrSourceUnavailable marks a run that could not fetch a single candidate.
var ErrSourceUnavailable = errors.New("candidate source unavailable")

// State is a step of the per-run state machine.
type State int

const (
	StateStart State = iota
	StateFetchCandidates
	StateCheckDuplicate
	StateExtract
	StateSummarizeBrief
	StateSummarizeDetailed
	StatePersist
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateStart:             "start",
	StateFetchCandidates:   "fetch_candidates",
	StateCheckDuplicate:    "check_duplicate",
	StateExtract:           "extract",
	StateSummarizeBrief:    "summarize_brief",
	StateSummarizeDetailed: "summarize_detailed",
	StatePersist:           "persist",
	StateDone:              "done",
	StateAborted:           "aborted",
}

// String returns the lower-case name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// RunResult summarizes one ingestion run.
type RunResult struct {
	RunID string

	// State is StateDone when enumeration finished, StateAborted when the
	// context was cancelled mid-run or the source yielded nothing but an
	// error.
	State State

	// Candidates is the number of entries the source yielded, malformed
	// ones included.
	Candidates int

	// NewPapers counts rows actually inserted.
	NewPapers int

	// Skipped counts candidates whose pdf_url was already stored.
	Skipped int

	// Degraded counts inserted papers carrying at least one sentinel.
	Degraded int

	// Failed counts candidates dropped by a malformed entry, an existence
	// check error or an insert error.
	Failed int

	// Inserted lists the ids of new rows in insert order.
	Inserted []int64

	Duration time.Duration

	// SourceErr is the error that ended candidate enumeration early, if any.
	SourceErr error

	// Err is set when the run was aborted. It wraps ErrSourceUnavailable
	// when no candidate could be fetched.
	Err error
}

// Pipeline wires the collaborators of an ingestion run. Logger and Metrics
// are optional.
type Pipeline struct {
	Source     CandidateSource
	Store      PaperStore
	Extractor  TextExtractor
	Summarizer Summarizer
	Logger     *zap.Logger
	Metrics    *Metrics
}

// Run performs one ingestion pass.
func (p *Pipeline) Run(ctx context.Context) RunResult {
	res := RunResult{RunID: uuid.NewString(), State: StateStart}

	base := p.Logger
	if base == nil {
		base = zap.NewNop()
	}
	log := base.Named("ingest").With(zap.String("run_id", res.RunID))

	start := time.Now()
	log.Info("--- starting ingestion run ---")

	p.transition(log, &res, StateFetchCandidates)
	for cand, err := range p.Source.Candidates(ctx) {
		if err != nil {
			if errors.Is(err, source.ErrMalformedEntry) {
				res.Candidates++
				res.Failed++
				log.Warn("skipping malformed candidate", zap.Error(err))
				continue
			}
			res.SourceErr = err
			log.Error("candidate enumeration failed", zap.Error(err))
			continue
		}
		res.Candidates++
		p.process(ctx, log, cand, &res)
		if ctx.Err() != nil {
			break
		}
	}

	switch {
	case ctx.Err() != nil:
		res.Err = ctx.Err()
		p.transition(log, &res, StateAborted)
	case res.Candidates == 0 && res.SourceErr != nil:
		res.Err = fmt.Errorf("%w: %w", ErrSourceUnavailable, res.SourceErr)
		p.transition(log, &res, StateAborted)
	default:
		p.transition(log, &res, StateDone)
	}

	res.Duration = time.Since(start)
	if p.Metrics != nil {
		p.Metrics.Observe(res)
	}

	fields := []zap.Field{
		zap.String("state", res.State.String()),
		zap.Int("candidates", res.Candidates),
		zap.Int("new_papers", res.NewPapers),
		zap.Int("skipped", res.Skipped),
		zap.Int("degraded", res.Degraded),
		zap.Int("failed", res.Failed),
	}
	if res.NewPapers > 0 {
		log.Info(fmt.Sprintf("added %d new paper(s) to the database", res.NewPapers), fields...)
	} else {
		log.Info("no new papers found in this run", fields...)
	}
	log.Info("--- ingestion run finished ---")
	log.Info(fmt.Sprintf("Total execution time: %.2f seconds", res.Duration.Seconds()))
	return res
}

// process carries one candidate from the duplicate check to persistence.
func (p *Pipeline) process(ctx context.Context, log *zap.Logger, c types.Candidate, res *RunResult) {
	log = log.With(zap.String("pdf_url", c.PDFURL))

	p.transition(log, res, StateCheckDuplicate)
	exists, err := p.Store.Exists(ctx, c.PDFURL)
	if err != nil {
		res.Failed++
		log.Error("checking for existing paper failed", zap.Error(err))
		return
	}
	if exists {
		res.Skipped++
		log.Info("paper already exists, skipping", zap.String("title", c.Title))
		return
	}
	log.Info("processing new paper", zap.String("title", c.Title))

	p.transition(log, res, StateExtract)
	text := p.Extractor.Extract(ctx, c.PDFURL)
	if !text.OK() {
		log.Warn("full text unavailable",
			zap.Stringer("failure", text.Kind), zap.Error(text.Err))
	}

	p.transition(log, res, StateSummarizeBrief)
	brief := p.Summarizer.Brief(ctx, c.Abstract)

	p.transition(log, res, StateSummarizeDetailed)
	detailed := p.Summarizer.Detailed(ctx, text.Text)

	paper := types.PaperFromCandidate(c)
	paper.AISummary = brief.Text
	paper.DetailedSummary = detailed.Text

	p.transition(log, res, StatePersist)
	id, err := p.Store.Insert(ctx, paper)
	if errors.Is(err, store.ErrDuplicate) {
		res.Skipped++
		log.Warn("paper was stored by another writer, skipping", zap.Error(err))
		return
	}
	if err != nil {
		res.Failed++
		log.Error("saving paper failed", zap.Error(err))
		return
	}

	res.NewPapers++
	res.Inserted = append(res.Inserted, id)
	if brief.Degraded || detailed.Degraded {
		res.Degraded++
	}
	log.Info("saved paper", zap.Int64("id", id),
		zap.Bool("brief_degraded", brief.Degraded),
		zap.Bool("detailed_degraded", detailed.Degraded))
}

func (p *Pipeline) transition(log *zap.Logger, res *RunResult, s State) {
	res.State = s
	log.Debug("state", zap.Stringer("state", s))
}
