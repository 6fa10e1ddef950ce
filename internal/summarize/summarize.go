// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize produces the brief and detailed paper digests through a
// local language model. Both operations always return usable text: a model
// failure yields a fixed sentinel instead of an error the caller must handle.
package summarize

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/magpie/pkg/types"
)

// Sentinel digests stored when a summary cannot be produced.
const (
	BriefFailedSentinel    = "Error generating brief summary from local model."
	NoTextSentinel         = "Could not generate detailed summary because PDF text was not available."
	DetailedFailedSentinel = "Error generating detailed summary from local model."
)

// ErrNoText is the Outcome error when the detailed summary is skipped for
// lack of full text.
var ErrNoText = errors.New("no full text available")

// Backend abstracts the inference API so tests can supply a mock. One call
// carries one user-role prompt and returns the complete response text.
type Backend interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Outcome is the result of one summarization call. Text is never empty;
// when Degraded is true it holds a sentinel and Err holds the cause.
type Outcome struct {
	Text     string
	Degraded bool
	Err      error
}

// Engine produces brief and detailed summaries. It makes no retries: one
// failed call is final for that paper and field.
type Engine struct {
	backend  Backend
	maxChars int
	log      *zap.Logger
}

// NewEngine returns an Engine using backend. cfg.MaxChars sets the full-text
// budget for detailed summaries (default 8000).
func NewEngine(backend Backend, cfg types.SummarizeConfig, log *zap.Logger) *Engine {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = types.DefaultSummarizeConfig().MaxChars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{backend: backend, maxChars: maxChars, log: log.Named("summarize")}
}

// Brief asks the model for a three-bullet digest of abstract.
func (e *Engine) Brief(ctx context.Context, abstract string) Outcome {
	prompt, err := renderPrompt(briefPromptTmpl, abstract)
	if err != nil {
		return degraded(BriefFailedSentinel, err)
	}
	text, err := e.backend.Chat(ctx, prompt)
	if err != nil {
		e.log.Warn("brief summary generation failed", zap.Error(err))
		return degraded(BriefFailedSentinel, err)
	}
	if strings.TrimSpace(text) == "" {
		return degraded(BriefFailedSentinel, ErrEmptyResponse)
	}
	return Outcome{Text: text}
}

// Detailed asks the model for an analytical digest of the first MaxChars
// characters of fullText. Empty fullText returns NoTextSentinel without
// calling the model.
func (e *Engine) Detailed(ctx context.Context, fullText string) Outcome {
	if fullText == "" {
		return degraded(NoTextSentinel, ErrNoText)
	}
	prompt, err := renderPrompt(detailedPromptTmpl, Truncate(fullText, e.maxChars))
	if err != nil {
		return degraded(DetailedFailedSentinel, err)
	}
	text, err := e.backend.Chat(ctx, prompt)
	if err != nil {
		e.log.Warn("detailed summary generation failed", zap.Error(err))
		return degraded(DetailedFailedSentinel, err)
	}
	if strings.TrimSpace(text) == "" {
		return degraded(DetailedFailedSentinel, ErrEmptyResponse)
	}
	return Outcome{Text: text}
}

// Truncate returns the first n characters of s. It cuts at the character
// count only, never at a word or sentence boundary. n <= 0 returns s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func degraded(sentinel string, err error) Outcome {
	return Outcome{Text: sentinel, Degraded: true, Err: err}
}
