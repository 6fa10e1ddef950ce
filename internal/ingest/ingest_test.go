// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/magpie/internal/extract"
	"github.com/pdiddy/magpie/internal/source"
	"github.com/pdiddy/magpie/internal/store"
	"github.com/pdiddy/magpie/internal/summarize"
	"github.com/pdiddy/magpie/pkg/types"
)

// --- fakes ---

// fakeSource yields a fixed list of items. An item with a non-nil err is
// yielded as an error.
type fakeSource struct {
	items []sourceItem
}

type sourceItem struct {
	cand types.Candidate
	err  error
}

func (f *fakeSource) Candidates(context.Context) iter.Seq2[types.Candidate, error] {
	return func(yield func(types.Candidate, error) bool) {
		for _, it := range f.items {
			if !yield(it.cand, it.err) {
				return
			}
		}
	}
}

func candidates(cs ...types.Candidate) *fakeSource {
	f := &fakeSource{}
	for _, c := range cs {
		f.items = append(f.items, sourceItem{cand: c})
	}
	return f
}

// memStore is an in-memory PaperStore keyed by pdf_url.
type memStore struct {
	papers    []types.Paper
	inserts   []string
	existsErr map[string]error
	insertErr map[string]error
}

func newMemStore(existing ...string) *memStore {
	m := &memStore{existsErr: map[string]error{}, insertErr: map[string]error{}}
	for _, u := range existing {
		m.papers = append(m.papers, types.Paper{ID: int64(len(m.papers) + 1), Title: "existing", PDFURL: u})
	}
	return m
}

func (m *memStore) Exists(_ context.Context, pdfURL string) (bool, error) {
	if err := m.existsErr[pdfURL]; err != nil {
		return false, err
	}
	for _, p := range m.papers {
		if p.PDFURL == pdfURL {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(_ context.Context, p types.Paper) (int64, error) {
	m.inserts = append(m.inserts, p.PDFURL)
	if err := m.insertErr[p.PDFURL]; err != nil {
		return 0, err
	}
	for _, q := range m.papers {
		if q.PDFURL == p.PDFURL {
			return 0, store.ErrDuplicate
		}
	}
	p.ID = int64(len(m.papers) + 1)
	m.papers = append(m.papers, p)
	return p.ID, nil
}

// fakeExtractor returns canned text per URL; unknown URLs fail to download.
type fakeExtractor struct {
	texts map[string]string
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, pdfURL string) extract.Result {
	f.calls = append(f.calls, pdfURL)
	text, ok := f.texts[pdfURL]
	if !ok {
		return extract.Result{Kind: extract.FailureDownload, Err: errors.New("connection refused")}
	}
	return extract.Result{Text: text, Pages: 1}
}

// echoSummarizer builds summaries from its input and mirrors the no-text
// behavior of the real engine.
type echoSummarizer struct {
	failBrief bool
}

func (s *echoSummarizer) Brief(_ context.Context, abstract string) summarize.Outcome {
	if s.failBrief {
		return summarize.Outcome{Text: summarize.BriefFailedSentinel, Degraded: true, Err: errors.New("model down")}
	}
	return summarize.Outcome{Text: "brief: " + abstract}
}

func (s *echoSummarizer) Detailed(_ context.Context, fullText string) summarize.Outcome {
	if fullText == "" {
		return summarize.Outcome{Text: summarize.NoTextSentinel, Degraded: true, Err: summarize.ErrNoText}
	}
	return summarize.Outcome{Text: "detailed: " + fullText}
}

func cand(n int) types.Candidate {
	return types.Candidate{
		EntryID:   fmt.Sprintf("http://arxiv.org/abs/2403.%05dv1", n),
		Title:     fmt.Sprintf("Paper %d", n),
		Abstract:  fmt.Sprintf("Abstract %d", n),
		Authors:   []string{"Alice Smith"},
		Published: time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC),
		PDFURL:    fmt.Sprintf("http://arxiv.org/pdf/2403.%05dv1", n),
	}
}

func textsFor(cs ...types.Candidate) map[string]string {
	m := map[string]string{}
	for _, c := range cs {
		m[c.PDFURL] = "full text of " + c.Title
	}
	return m
}

// --- scenarios ---

func TestRunAllNew(t *testing.T) {
	a, b := cand(1), cand(2)
	st := newMemStore()
	p := &Pipeline{
		Source:     candidates(a, b),
		Store:      st,
		Extractor:  &fakeExtractor{texts: textsFor(a, b)},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, StateDone, res.State)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.NewPapers)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Degraded)
	assert.Equal(t, []int64{1, 2}, res.Inserted)

	require.Len(t, st.papers, 2)
	assert.Equal(t, "Paper 1", st.papers[0].Title, "insert order follows upstream order")
	assert.Equal(t, "Paper 2", st.papers[1].Title)
	assert.Equal(t, "brief: Abstract 1", st.papers[0].AISummary)
	assert.Equal(t, "detailed: full text of Paper 1", st.papers[0].DetailedSummary)
	assert.Equal(t, "2024-03-01", st.papers[0].PublishedDate)
	assert.Equal(t, "Abstract 1", st.papers[0].Summary)
}

func TestRunPartialDuplicate(t *testing.T) {
	a, b := cand(1), cand(2)
	st := newMemStore(a.PDFURL)
	ex := &fakeExtractor{texts: textsFor(a, b)}
	p := &Pipeline{Source: candidates(a, b), Store: st, Extractor: ex, Summarizer: &echoSummarizer{}}

	res := p.Run(context.Background())

	assert.Equal(t, 1, res.NewPapers)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{b.PDFURL}, st.inserts, "no insert attempted for the existing paper")
	assert.Equal(t, []string{b.PDFURL}, ex.calls, "existing paper is not downloaded")
	assert.Equal(t, "existing", st.papers[0].Title, "existing row untouched")
}

func TestRunIdempotent(t *testing.T) {
	a, b := cand(1), cand(2)
	st := newMemStore()
	newPipeline := func() *Pipeline {
		return &Pipeline{
			Source:     candidates(a, b),
			Store:      st,
			Extractor:  &fakeExtractor{texts: textsFor(a, b)},
			Summarizer: &echoSummarizer{},
		}
	}

	first := newPipeline().Run(context.Background())
	second := newPipeline().Run(context.Background())

	assert.Equal(t, 2, first.NewPapers)
	assert.Equal(t, 0, second.NewPapers)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, st.papers, 2)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunExtractionFailure(t *testing.T) {
	a := cand(1)
	st := newMemStore()
	p := &Pipeline{
		Source:     candidates(a),
		Store:      st,
		Extractor:  &fakeExtractor{texts: map[string]string{}},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, 1, res.NewPapers)
	assert.Equal(t, 1, res.Degraded)
	require.Len(t, st.papers, 1)
	assert.Equal(t, summarize.NoTextSentinel, st.papers[0].DetailedSummary)
	assert.Equal(t, "brief: Abstract 1", st.papers[0].AISummary)
}

func TestRunSummaryFailureStillPersists(t *testing.T) {
	a := cand(1)
	st := newMemStore()
	p := &Pipeline{
		Source:     candidates(a),
		Store:      st,
		Extractor:  &fakeExtractor{texts: textsFor(a)},
		Summarizer: &echoSummarizer{failBrief: true},
	}

	res := p.Run(context.Background())

	assert.Equal(t, 1, res.NewPapers)
	assert.Equal(t, 1, res.Degraded)
	assert.Equal(t, summarize.BriefFailedSentinel, st.papers[0].AISummary)
	assert.NotEmpty(t, st.papers[0].DetailedSummary)
}

func TestRunInsertFailureIsCandidateLocal(t *testing.T) {
	a, b, c := cand(1), cand(2), cand(3)
	st := newMemStore()
	st.insertErr[b.PDFURL] = errors.New("disk I/O error")
	p := &Pipeline{
		Source:     candidates(a, b, c),
		Store:      st,
		Extractor:  &fakeExtractor{texts: textsFor(a, b, c)},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 2, res.NewPapers, "only persisted rows count as new")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{a.PDFURL, b.PDFURL, c.PDFURL}, st.inserts)
	require.Len(t, st.papers, 2)
	assert.Equal(t, "Paper 3", st.papers[1].Title)
}

func TestRunExistsFailureIsCandidateLocal(t *testing.T) {
	a, b := cand(1), cand(2)
	st := newMemStore()
	st.existsErr[a.PDFURL] = errors.New("database is locked")
	ex := &fakeExtractor{texts: textsFor(a, b)}
	p := &Pipeline{Source: candidates(a, b), Store: st, Extractor: ex, Summarizer: &echoSummarizer{}}

	res := p.Run(context.Background())

	assert.Equal(t, 1, res.NewPapers)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{b.PDFURL}, ex.calls)
}

func TestRunDuplicateOnInsertCountsAsSkipped(t *testing.T) {
	a := cand(1)
	st := newMemStore()
	st.insertErr[a.PDFURL] = fmt.Errorf("inserting: %w", store.ErrDuplicate)
	p := &Pipeline{
		Source:     candidates(a),
		Store:      st,
		Extractor:  &fakeExtractor{texts: textsFor(a)},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, 0, res.NewPapers)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
}

func TestRunSourceErrors(t *testing.T) {
	a, b := cand(1), cand(2)
	pageErr := errors.New("arXiv API returned HTTP 500")
	src := &fakeSource{items: []sourceItem{
		{cand: a},
		{err: fmt.Errorf("entry 2: %w", source.ErrMalformedEntry)},
		{cand: b},
		{err: pageErr},
	}}
	st := newMemStore()
	p := &Pipeline{
		Source:     src,
		Store:      st,
		Extractor:  &fakeExtractor{texts: textsFor(a, b)},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 2, res.NewPapers)
	assert.Equal(t, 1, res.Failed)
	assert.ErrorIs(t, res.SourceErr, pageErr)
}

func TestRunSourceOutageAborts(t *testing.T) {
	outage := errors.New("dial tcp: connection refused")
	st := newMemStore()
	p := &Pipeline{
		Source:     &fakeSource{items: []sourceItem{{err: outage}}},
		Store:      st,
		Extractor:  &fakeExtractor{},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, StateAborted, res.State)
	assert.ErrorIs(t, res.Err, ErrSourceUnavailable)
	assert.ErrorIs(t, res.Err, outage)
	assert.ErrorIs(t, res.SourceErr, outage)
	assert.Zero(t, res.Candidates)
	assert.Empty(t, st.inserts)
}

func TestRunEmptySource(t *testing.T) {
	p := &Pipeline{
		Source:     candidates(),
		Store:      newMemStore(),
		Extractor:  &fakeExtractor{},
		Summarizer: &echoSummarizer{},
	}

	res := p.Run(context.Background())

	assert.Equal(t, StateDone, res.State)
	assert.Zero(t, res.NewPapers)
	assert.Empty(t, res.Inserted)
}

func TestRunCancelledContextAborts(t *testing.T) {
	a, b := cand(1), cand(2)
	ctx, cancel := context.WithCancel(context.Background())
	st := newMemStore()
	ex := &cancellingExtractor{cancel: cancel, inner: &fakeExtractor{texts: textsFor(a, b)}}
	p := &Pipeline{Source: candidates(a, b), Store: st, Extractor: ex, Summarizer: &echoSummarizer{}}

	res := p.Run(ctx)

	assert.Equal(t, StateAborted, res.State)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, res.Candidates, "no candidate is started after cancellation")
}

type cancellingExtractor struct {
	cancel context.CancelFunc
	inner  *fakeExtractor
}

func (c *cancellingExtractor) Extract(ctx context.Context, pdfURL string) extract.Result {
	c.cancel()
	return c.inner.Extract(ctx, pdfURL)
}

func TestRunLogsCarryRunID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := cand(1)
	p := &Pipeline{
		Source:     candidates(a),
		Store:      newMemStore(),
		Extractor:  &fakeExtractor{texts: textsFor(a)},
		Summarizer: &echoSummarizer{},
		Logger:     zap.New(core),
	}

	res := p.Run(context.Background())

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, res.RunID, entry.ContextMap()["run_id"], entry.Message)
	}
	assert.NotZero(t, logs.FilterMessageSnippet("Total execution time").Len())
	assert.NotZero(t, logs.FilterMessage("saved paper").Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "check_duplicate", StateCheckDuplicate.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(99)", State(99).String())
}

// --- metrics ---

func TestMetricsWriteFile(t *testing.T) {
	m := NewMetrics()
	m.Observe(RunResult{State: StateDone, NewPapers: 2, Skipped: 3, Degraded: 1, Failed: 1, Duration: 1500 * time.Millisecond})
	m.Observe(RunResult{State: StateDone, NewPapers: 1})

	path := filepath.Join(t.TempDir(), "magpie.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	for _, want := range []string{
		"magpie_ingest_new_papers_total 3",
		"magpie_ingest_skipped_papers_total 3",
		"magpie_ingest_degraded_papers_total 1",
		"magpie_ingest_failed_candidates_total 1",
		`magpie_ingest_runs_total{state="done"} 2`,
		"magpie_ingest_last_run_duration_seconds 0",
	} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}
}

func TestMetricsObservedByRun(t *testing.T) {
	a := cand(1)
	m := NewMetrics()
	p := &Pipeline{
		Source:     candidates(a),
		Store:      newMemStore(),
		Extractor:  &fakeExtractor{},
		Summarizer: &echoSummarizer{},
		Metrics:    m,
	}
	p.Run(context.Background())

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				got[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, got["magpie_ingest_new_papers_total"])
	assert.Equal(t, 1.0, got["magpie_ingest_degraded_papers_total"])
}

// --- integration with the SQLite store ---

func TestRunAgainstSQLiteStore(t *testing.T) {
	st, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "magpie.db")})
	require.NoError(t, err)
	defer st.Close()

	a, b := cand(1), cand(2)
	newPipeline := func() *Pipeline {
		return &Pipeline{
			Source:     candidates(a, b),
			Store:      st,
			Extractor:  &fakeExtractor{texts: textsFor(a)},
			Summarizer: &echoSummarizer{},
		}
	}

	first := newPipeline().Run(context.Background())
	require.Equal(t, 2, first.NewPapers)

	second := newPipeline().Run(context.Background())
	assert.Equal(t, 0, second.NewPapers)
	assert.Equal(t, 2, second.Skipped)

	ctx := context.Background()
	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := st.All(ctx)
	require.NoError(t, err)
	for _, p := range all {
		assert.NotEmpty(t, p.AISummary)
		assert.NotEmpty(t, p.DetailedSummary)
	}
	assert.Equal(t, summarize.NoTextSentinel, all[1].DetailedSummary)
	assert.Equal(t, []string{"Alice Smith"}, all[0].Authors)
}
