// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/pdiddy/magpie/pkg/types"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned empty content")

// OllamaBackend calls a local Ollama server's chat endpoint.
type OllamaBackend struct {
	Model  string
	client *api.Client
}

// NewOllamaBackend returns a backend for cfg. cfg.Timeout bounds each call;
// zero leaves the bound to the server.
func NewOllamaBackend(cfg types.SummarizeConfig) (*OllamaBackend, error) {
	def := types.DefaultSummarizeConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing Ollama URL %q: %w", cfg.BaseURL, err)
	}
	return &OllamaBackend{
		Model:  cfg.Model,
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
	}, nil
}

// Chat sends prompt as a single user message and returns the full completion.
func (o *OllamaBackend) Chat(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.Model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
