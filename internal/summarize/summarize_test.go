// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/magpie/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockBackend) Chat(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func testEngine(b Backend, maxChars int) *Engine {
	return NewEngine(b, types.SummarizeConfig{MaxChars: maxChars}, nil)
}

func TestBriefSuccess(t *testing.T) {
	b := &mockBackend{reply: "- one\n- two\n- three"}

	out := testEngine(b, 0).Brief(context.Background(), "We propose agents.")
	assert.False(t, out.Degraded)
	assert.NoError(t, out.Err)
	assert.Equal(t, "- one\n- two\n- three", out.Text)

	require.Len(t, b.prompts, 1)
	assert.Equal(t, "Summarize the following abstract in 3 bullet points: We propose agents.", b.prompts[0])
}

func TestBriefFailureReturnsSentinel(t *testing.T) {
	b := &mockBackend{err: errors.New("connection refused")}

	out := testEngine(b, 0).Brief(context.Background(), "abstract")
	assert.True(t, out.Degraded)
	assert.Equal(t, BriefFailedSentinel, out.Text)
	assert.EqualError(t, out.Err, "connection refused")
	assert.Len(t, b.prompts, 1, "no retry")
}

func TestBriefEmptyReplyReturnsSentinel(t *testing.T) {
	out := testEngine(&mockBackend{reply: "  \n"}, 0).Brief(context.Background(), "abstract")
	assert.True(t, out.Degraded)
	assert.Equal(t, BriefFailedSentinel, out.Text)
	assert.ErrorIs(t, out.Err, ErrEmptyResponse)
}

func TestDetailedNoTextSkipsModel(t *testing.T) {
	b := &mockBackend{reply: "unused"}

	out := testEngine(b, 0).Detailed(context.Background(), "")
	assert.True(t, out.Degraded)
	assert.Equal(t, NoTextSentinel, out.Text)
	assert.ErrorIs(t, out.Err, ErrNoText)
	assert.Empty(t, b.prompts, "model must not be called without text")
}

func TestDetailedFailureReturnsSentinel(t *testing.T) {
	b := &mockBackend{err: errors.New("model not found")}

	out := testEngine(b, 0).Detailed(context.Background(), "full text")
	assert.True(t, out.Degraded)
	assert.Equal(t, DetailedFailedSentinel, out.Text)
	assert.Len(t, b.prompts, 1)
}

func TestDetailedSendsExactPrefix(t *testing.T) {
	const budget = 8000
	b := &mockBackend{reply: "digest"}
	// The sentence crosses the budget, so a sentence-aware cut would differ.
	text := strings.Repeat("a", budget-3) + "bcd. Overflow sentence follows."

	out := testEngine(b, budget).Detailed(context.Background(), text)
	require.False(t, out.Degraded)
	assert.Equal(t, "digest", out.Text)

	require.Len(t, b.prompts, 1)
	prompt := b.prompts[0]
	want := text[:budget]
	assert.Contains(t, prompt, "PAPER TEXT:\n"+want+"\n")
	assert.NotContains(t, prompt, "bcd.")
	assert.NotContains(t, prompt, "Overflow")
}

func TestDetailedDefaultBudget(t *testing.T) {
	b := &mockBackend{reply: "digest"}
	text := strings.Repeat("x", 8000) + "TAIL"

	testEngine(b, 0).Detailed(context.Background(), text)
	require.Len(t, b.prompts, 1)
	assert.Contains(t, b.prompts[0], strings.Repeat("x", 8000))
	assert.NotContains(t, b.prompts[0], "TAIL")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than budget", "abc", 5, "abc"},
		{"exact budget", "abcde", 5, "abcde"},
		{"plain prefix", "Hello world. Second.", 8, "Hello wo"},
		{"counts characters not bytes", "héllo wörld", 7, "héllo w"},
		{"zero disables", "abc", 0, "abc"},
		{"empty", "", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}
