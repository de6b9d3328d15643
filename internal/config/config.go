// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// Config is the top-level VTA configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Stores    StoresConfig    `mapstructure:"stores"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Captions  CaptionsConfig  `mapstructure:"captions"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
	// CORSOrigins defaults to ["*"]: the ask endpoint is called from
	// arbitrary course tooling and carries no credentials.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StoresConfig locates the persisted embedding stores consumed at startup.
type StoresConfig struct {
	Forum  string `mapstructure:"forum"`
	Course string `mapstructure:"course"`
	// CourseMeta is the debug sidecar written by `vta index`; the
	// serving path never reads it.
	CourseMeta string `mapstructure:"course_meta"`
}

// RetrievalConfig controls top-K search and citation links.
type RetrievalConfig struct {
	TopK         int    `mapstructure:"top_k"`
	ForumBaseURL string `mapstructure:"forum_base_url"`
}

// GeminiConfig holds the remote generative-model settings.
type GeminiConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	CaptionModel string `mapstructure:"caption_model"`
}

// EmbeddingConfig locates the local sentence-embedding model. The same
// model embeds corpus text at index time and questions at query time.
type EmbeddingConfig struct {
	Model         string `mapstructure:"model"`
	Dimension     int    `mapstructure:"dimension"`
	ModelPath     string `mapstructure:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path"`
	LibraryPath   string `mapstructure:"library_path"`
	// MaxSeqLen caps tokenized input length; MiniLM supports 512
	// positions, so longer texts are truncated before inference.
	MaxSeqLen int `mapstructure:"max_seq_len"`
}

// CaptionsConfig controls the offline captioning batch.
type CaptionsConfig struct {
	Cache       string `mapstructure:"cache"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// SetDefaults registers default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("stores.forum", "data/forum_embeddings.json.gz")
	v.SetDefault("stores.course", "data/course_embeddings.json.gz")
	v.SetDefault("stores.course_meta", "data/course_chunks.json")
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.forum_base_url", "https://discourse.onlinedegree.iitm.ac.in/t")
	v.SetDefault("gemini.model", "gemini-2.0-flash-lite")
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.model_path", "models/model.onnx")
	v.SetDefault("embedding.tokenizer_path", "models/tokenizer.json")
	v.SetDefault("embedding.max_seq_len", 512)
	v.SetDefault("captions.cache", "data/caption_cache.json")
	v.SetDefault("captions.max_attempts", 5)
}

// SetupEnv wires environment overrides with the VTA_ prefix.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("VTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix VTA_). The bare GEMINI_API_KEY
// variable is honored as well, since that is how the deployment
// environment has always supplied the credential.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vtaerr.Errorf(vtaerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue,
				"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
		} else if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
			errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue,
				"config: server.listen port must be between 1 and 65535, got %q", portStr))
		}
	}

	if c.Stores.Forum == "" {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "config: stores.forum must not be empty"))
	}
	if c.Stores.Course == "" {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "config: stores.course must not be empty"))
	}

	if c.Retrieval.TopK < 1 {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue,
			"config: retrieval.top_k must be greater than 0, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.ForumBaseURL == "" {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "config: retrieval.forum_base_url must not be empty"))
	}

	if c.Gemini.Model == "" {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue, "config: gemini.model must not be empty"))
	}

	if c.Embedding.Dimension < 1 {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue,
			"config: embedding.dimension must be greater than 0, got %d", c.Embedding.Dimension))
	}
	if c.Embedding.MaxSeqLen < 1 {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue,
			"config: embedding.max_seq_len must be greater than 0, got %d", c.Embedding.MaxSeqLen))
	}

	if c.Captions.MaxAttempts < 1 {
		errs = append(errs, vtaerr.Errorf(vtaerr.CodeConfigValidateInvalidValue,
			"config: captions.max_attempts must be greater than 0, got %d", c.Captions.MaxAttempts))
	}

	return errs
}
