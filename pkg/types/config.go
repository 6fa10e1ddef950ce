package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no client-side bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "magpie/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// DefaultUserAgent identifies magpie to upstream services.
const DefaultUserAgent = "magpie/0.1"

// SourceConfig holds settings for the upstream literature query.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the arXiv API query endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Query is the topical filter expression sent as search_query.
	Query string `json:"query" yaml:"query" mapstructure:"query"`

	// MaxResults caps the number of candidates per run (default 6).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// PageSize is the number of entries requested per API call (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// PageDelay is the pause between consecutive page requests (default 3s,
	// the interval arXiv asks clients to respect).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// MaxRetries bounds retries on HTTP 429/503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// DefaultQuery is the fixed topical filter for agent-related AI papers.
const DefaultQuery = `(cat:cs.AI OR cat:cs.CL) AND ("Intelligent Agents" OR "Autonomous Agents" OR "LLM" OR "AGENTIC")`

// DefaultSourceConfig returns the source settings used when nothing is configured.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		BaseURL:    "https://export.arxiv.org/api/query",
		Query:      DefaultQuery,
		MaxResults: 6,
		PageSize:   100,
		PageDelay:  3 * time.Second,
		MaxRetries: 5,
	}
}

// ExtractConfig holds settings for PDF download and text extraction.
type ExtractConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxBytes caps the size of a downloaded PDF (default 50 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`
}

// DefaultExtractConfig returns the extraction settings used when nothing is configured.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		MaxBytes: 50 << 20,
	}
}

// SummarizeConfig holds settings for the local inference backend.
type SummarizeConfig struct {
	// BaseURL is the Ollama server address.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the model identifier, fixed per deployment (e.g. "llama3:8b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Timeout bounds one inference call. Zero relies on the backend.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxChars is the character budget of full text sent for the detailed
	// summary (default 8000). Truncation keeps a plain prefix.
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`
}

// DefaultSummarizeConfig returns the inference settings used when nothing is configured.
func DefaultSummarizeConfig() SummarizeConfig {
	return SummarizeConfig{
		BaseURL:  "http://localhost:11434",
		Model:    "llama3:8b",
		MaxChars: 8000,
	}
}

// StoreConfig holds settings for the paper store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// RecentLimit is the default size of "list recent" (default 10).
	RecentLimit int `json:"recent_limit" yaml:"recent_limit" mapstructure:"recent_limit"`
}

// DefaultStoreConfig returns the store settings used when nothing is configured.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Path:        "magpie.db",
		RecentLimit: 10,
	}
}

// ServeConfig holds settings for the read-only HTTP server.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Mode selects "dev" (console) or "prod" (JSON) output.
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// File is an optional extra log destination (e.g. "magpie.log").
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all component configurations. It is built once at process
// start and passed to each component's constructor.
type Config struct {
	Source    SourceConfig    `json:"source" yaml:"source" mapstructure:"source"`
	Extract   ExtractConfig   `json:"extract" yaml:"extract" mapstructure:"extract"`
	Summarize SummarizeConfig `json:"summarize" yaml:"summarize" mapstructure:"summarize"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Serve     ServeConfig     `json:"serve" yaml:"serve" mapstructure:"serve"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`

	// MetricsFile, when set, receives run metrics in Prometheus text format.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}

// DefaultConfig returns a Config populated with every component's defaults.
func DefaultConfig() Config {
	return Config{
		Source:    DefaultSourceConfig(),
		Extract:   DefaultExtractConfig(),
		Summarize: DefaultSummarizeConfig(),
		Store:     DefaultStoreConfig(),
		Serve:     ServeConfig{Addr: ":8080"},
		Log:       LogConfig{Mode: "dev"},
	}
}
