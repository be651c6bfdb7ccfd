// Package config loads and validates casefind configuration.
// Configuration is layered: built-in defaults, then a YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	cferrors "github.com/nyayatech/casefind/internal/errors"
)

// Config represents the complete casefind configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Reranker   RerankerConfig   `yaml:"reranker" json:"reranker"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig configures on-disk locations.
type PathsConfig struct {
	// DataDir holds the metadata store and vector index for a workspace.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures fusion parameters.
// Weights are configurable via:
//  1. Config file (casefind.yaml) - per-deployment tuning
//  2. Env vars (CASEFIND_SEMANTIC_WEIGHT, ...) - highest priority
//  3. Per-call overrides on the search API
type SearchConfig struct {
	// SemanticWeight is the fusion weight for vector similarity (0.0-1.0).
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// RerankerWeight is the fusion weight for hosted reranker scores (0.0-1.0).
	RerankerWeight float64 `yaml:"reranker_weight" json:"reranker_weight"`

	// MetadataWeight is the fusion weight for structured-field relevance (0.0-1.0).
	MetadataWeight float64 `yaml:"metadata_weight" json:"metadata_weight"`

	// MaxResults is the number of candidates returned after fusion.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// DiversityFactor controls duplicate-title/court penalties and the
	// metadata imbalance penalty (0.0-1.0).
	DiversityFactor float64 `yaml:"diversity_factor" json:"diversity_factor"`

	// VectorThreshold drops vector hits scoring below it (0.0-1.0).
	VectorThreshold float64 `yaml:"vector_threshold" json:"vector_threshold"`

	// VectorTopK is how many candidates the vector source is asked for.
	VectorTopK int `yaml:"vector_top_k" json:"vector_top_k"`

	// UseHostedReranker enables the external reranking pass during fusion.
	UseHostedReranker bool `yaml:"use_hosted_reranker" json:"use_hosted_reranker"`

	// MetadataBackend selects the metadata store backend.
	// Options: "sqlite" (default) or "bleve".
	MetadataBackend string `yaml:"metadata_backend" json:"metadata_backend"`
}

// EmbeddingsConfig configures the embedding provider used by the vector source.
type EmbeddingsConfig struct {
	// Host is an OpenAI-compatible embeddings endpoint.
	Host string `yaml:"host" json:"host"`
	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the embedding vector size.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
}

// RerankerConfig configures the hosted relevance-scoring provider.
type RerankerConfig struct {
	// Enabled turns the hosted reranker on. When false, fusion uses the
	// neutral score for every candidate.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Provider selects the scoring provider: "cohere", "openai", "gemini".
	Provider string `yaml:"provider" json:"provider"`
	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key" json:"api_key"`
	// Model is the provider-specific model name.
	Model string `yaml:"model" json:"model"`
	// Endpoint overrides the provider base URL (rerank-endpoint style and
	// OpenAI-compatible gateways).
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// BatchDelay is the pause between sequential scoring batches.
	BatchDelay Duration `yaml:"batch_delay" json:"batch_delay"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "100ms" as well as plain integer nanoseconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return cferrors.ConfigError(fmt.Sprintf("parse duration %q", raw), err)
		}
		*d = Duration(parsed)
		return nil
	}

	var ns int64
	if err := value.Decode(&ns); err != nil {
		return err
	}
	*d = Duration(ns)
	return nil
}

// ServerConfig configures the process surface.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a config with defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: ".casefind",
		},
		Search: SearchConfig{
			SemanticWeight:  0.6,
			RerankerWeight:  0.3,
			MetadataWeight:  0.1,
			MaxResults:      10,
			DiversityFactor: 0.1,
			VectorThreshold: 0.0,
			VectorTopK:      20,
			MetadataBackend: "sqlite",
		},
		Embeddings: EmbeddingsConfig{
			Host:       "http://localhost:11434/v1",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Reranker: RerankerConfig{
			Provider:   "cohere",
			BatchDelay: Duration(100 * time.Millisecond),
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// Load reads configuration from the given YAML file, if it exists, and
// applies environment overrides. A missing file is not an error; defaults
// are used.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults + env only.
		case err != nil:
			return nil, cferrors.New(cferrors.ErrCodeConfigNotFound, fmt.Sprintf("read config %s", path), err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, cferrors.ConfigError(fmt.Sprintf("parse config %s", path), err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies CASEFIND_* environment variables on top of the
// file values. Unparseable numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CASEFIND_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("CASEFIND_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CASEFIND_METADATA_BACKEND"); v != "" {
		c.Search.MetadataBackend = v
	}
	if v, ok := envFloat("CASEFIND_SEMANTIC_WEIGHT"); ok {
		c.Search.SemanticWeight = v
	}
	if v, ok := envFloat("CASEFIND_RERANKER_WEIGHT"); ok {
		c.Search.RerankerWeight = v
	}
	if v, ok := envFloat("CASEFIND_METADATA_WEIGHT"); ok {
		c.Search.MetadataWeight = v
	}
	if v, ok := envFloat("CASEFIND_DIVERSITY_FACTOR"); ok {
		c.Search.DiversityFactor = v
	}
	if v, ok := envInt("CASEFIND_MAX_RESULTS"); ok {
		c.Search.MaxResults = v
	}
	if v, ok := envBool("CASEFIND_USE_HOSTED_RERANKER"); ok {
		c.Search.UseHostedReranker = v
	}
	if v := os.Getenv("CASEFIND_EMBEDDINGS_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("CASEFIND_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v, ok := envBool("CASEFIND_RERANKER_ENABLED"); ok {
		c.Reranker.Enabled = v
	}
	if v := os.Getenv("CASEFIND_RERANKER_PROVIDER"); v != "" {
		c.Reranker.Provider = v
	}
	if v := os.Getenv("CASEFIND_RERANKER_API_KEY"); v != "" {
		c.Reranker.APIKey = v
	}
	if v := os.Getenv("CASEFIND_RERANKER_MODEL"); v != "" {
		c.Reranker.Model = v
	}
	if v := os.Getenv("CASEFIND_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Validate checks the configuration for invalid values.
// Fusion weights are not required to sum to 1.0, but each must be
// non-negative; well-formed configurations keep the sum at 1.0.
func (c *Config) Validate() error {
	if c.Search.SemanticWeight < 0 || c.Search.RerankerWeight < 0 || c.Search.MetadataWeight < 0 {
		return cferrors.ConfigError("fusion weights must be non-negative", nil)
	}
	if c.Search.MaxResults <= 0 {
		return cferrors.ConfigError("max_results must be positive", nil)
	}
	if c.Search.DiversityFactor < 0 || c.Search.DiversityFactor > 1 {
		return cferrors.ConfigError("diversity_factor must be within [0, 1]", nil)
	}
	if c.Search.VectorThreshold < 0 || c.Search.VectorThreshold > 1 {
		return cferrors.ConfigError("vector_threshold must be within [0, 1]", nil)
	}
	if c.Search.VectorTopK <= 0 {
		return cferrors.ConfigError("vector_top_k must be positive", nil)
	}
	switch c.Search.MetadataBackend {
	case "sqlite", "bleve":
	default:
		return cferrors.ConfigError(
			fmt.Sprintf("unknown metadata_backend %q (expected sqlite or bleve)", c.Search.MetadataBackend), nil)
	}
	if c.Reranker.BatchDelay < 0 {
		return cferrors.ConfigError("reranker batch_delay must be non-negative", nil)
	}
	return nil
}
