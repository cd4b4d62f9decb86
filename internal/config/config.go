// Package config loads the versecraft YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// DefaultPath is tried when no --config flag is given.
const DefaultPath = "versecraft.yaml"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per client
	RateBurst       int           `yaml:"rate_burst"`
}

// SourceConfig selects where sample poems come from: poetrydb, local or none.
type SourceConfig struct {
	Type         string `yaml:"type"`
	BaseURL      string `yaml:"base_url"`
	Dir          string `yaml:"dir"`
	Watch        bool   `yaml:"watch"`
	MaxFragments int    `yaml:"max_fragments"`
}

// EmbedderConfig selects the embedding backend: openai, ollama, genai or hashing.
type EmbedderConfig struct {
	Type       string `yaml:"type"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// IndexConfig selects the per-run similarity index: memory, sqlite or pgvector.
type IndexConfig struct {
	Type        string `yaml:"type"`
	Metric      string `yaml:"metric"`
	Dir         string `yaml:"dir"`
	DatabaseURL string `yaml:"database_url"`
}

// GeneratorConfig selects the generation backend: openai, ollama or genai.
type GeneratorConfig struct {
	Type               string `yaml:"type"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	MaxOutputTokens    int    `yaml:"max_output_tokens"`
	SystemPrompt       string `yaml:"system_prompt"`
	PromptTemplateFile string `yaml:"prompt_template_file"`
}

// PipelineConfig tunes retrieval and timeouts.
type PipelineConfig struct {
	TopK        int           `yaml:"top_k"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// EventsConfig enables NATS run events when NATSURL is set.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// UIConfig configures the web form.
type UIConfig struct {
	Locale string `yaml:"locale"`
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Index     IndexConfig     `yaml:"index"`
	Generator GeneratorConfig `yaml:"generator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
	UI        UIConfig        `yaml:"ui"`
}

// Load reads .env if present, then the config at path. An empty path tries
// DefaultPath and falls back to defaults when it does not exist. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// a full run is up to four external calls
		cfg.Server.WriteTimeout = 150 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 1
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 5
	}

	if cfg.Source.Type == "" {
		cfg.Source.Type = "poetrydb"
	}
	if cfg.Source.Type == "poetrydb" && cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://poetrydb.org"
	}
	if cfg.Source.Type == "local" && cfg.Source.Dir == "" {
		cfg.Source.Dir = "./poems"
	}
	if cfg.Source.MaxFragments == 0 {
		cfg.Source.MaxFragments = 20
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = string(entities.MetricL2)
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.Generator.MaxOutputTokens == 0 {
		cfg.Generator.MaxOutputTokens = 200
	}

	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 5
	}
	if cfg.Pipeline.CallTimeout == 0 {
		cfg.Pipeline.CallTimeout = 30 * time.Second
	}

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "versecraft.poems"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.UI.Locale == "" {
		cfg.UI.Locale = string(entities.LocaleEN)
	}
}

// applyEnv applies VERSECRAFT_* overrides for deployment-specific values.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"VERSECRAFT_ADDR":            &cfg.Server.Addr,
		"VERSECRAFT_SOURCE_TYPE":     &cfg.Source.Type,
		"VERSECRAFT_POETRYDB_URL":    &cfg.Source.BaseURL,
		"VERSECRAFT_SOURCE_DIR":      &cfg.Source.Dir,
		"VERSECRAFT_EMBEDDER_TYPE":   &cfg.Embedder.Type,
		"VERSECRAFT_EMBEDDER_URL":    &cfg.Embedder.BaseURL,
		"VERSECRAFT_INDEX_TYPE":      &cfg.Index.Type,
		"VERSECRAFT_DATABASE_URL":    &cfg.Index.DatabaseURL,
		"VERSECRAFT_GENERATOR_TYPE":  &cfg.Generator.Type,
		"VERSECRAFT_GENERATOR_URL":   &cfg.Generator.BaseURL,
		"VERSECRAFT_GENERATOR_MODEL": &cfg.Generator.Model,
		"VERSECRAFT_NATS_URL":        &cfg.Events.NATSURL,
		"VERSECRAFT_LOG_LEVEL":       &cfg.Log.Level,
		"VERSECRAFT_LOG_FORMAT":      &cfg.Log.Format,
		"VERSECRAFT_LOCALE":          &cfg.UI.Locale,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("VERSECRAFT_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VERSECRAFT_TOP_K: %w", err)
		}
		cfg.Pipeline.TopK = n
	}
	if v := os.Getenv("VERSECRAFT_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VERSECRAFT_CALL_TIMEOUT: %w", err)
		}
		cfg.Pipeline.CallTimeout = d
	}
	return nil
}

// Validate rejects unknown backends and non-positive tuning values.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %v)", field, value, allowed))
	}

	oneOf("source.type", c.Source.Type, "poetrydb", "local", "none")
	oneOf("generator.type", c.Generator.Type, "openai", "ollama", "genai")
	oneOf("log.format", c.Log.Format, "json", "console")
	if c.RetrievalEnabled() {
		oneOf("embedder.type", c.Embedder.Type, "openai", "ollama", "genai", "hashing")
		oneOf("index.type", c.Index.Type, "memory", "sqlite", "pgvector")
		if _, err := entities.ParseMetric(c.Index.Metric); err != nil {
			errs = append(errs, fmt.Errorf("index.metric: %w", err))
		}
		if c.Index.Type == "pgvector" && c.Index.DatabaseURL == "" {
			errs = append(errs, errors.New("index.database_url is required for pgvector"))
		}
	}
	if c.Pipeline.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.top_k must be positive, got %d", c.Pipeline.TopK))
	}
	if c.Generator.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("generator.max_output_tokens must be positive, got %d", c.Generator.MaxOutputTokens))
	}
	if c.Pipeline.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.call_timeout must be positive, got %s", c.Pipeline.CallTimeout))
	}
	if c.Source.MaxFragments <= 0 {
		errs = append(errs, fmt.Errorf("source.max_fragments must be positive, got %d", c.Source.MaxFragments))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RetrievalEnabled reports whether runs fetch sample poems.
func (c *Config) RetrievalEnabled() bool { return c.Source.Type != "none" }

// Metric returns the parsed index metric. Call after Validate.
func (c *Config) Metric() entities.Metric {
	m, _ := entities.ParseMetric(c.Index.Metric)
	return m
}
