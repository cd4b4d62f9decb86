package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "versecraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "poetrydb", cfg.Source.Type)
	assert.Equal(t, "https://poetrydb.org", cfg.Source.BaseURL)
	assert.Equal(t, 5, cfg.Pipeline.TopK)
	assert.Equal(t, 200, cfg.Generator.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, entities.MetricL2, cfg.Metric())
	assert.True(t, cfg.RetrievalEnabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
source:
  type: local
  dir: /srv/poems
  watch: true
embedder:
  type: hashing
  dimensions: 64
index:
  type: sqlite
  metric: cosine
generator:
  type: ollama
  model: llama3
pipeline:
  top_k: 3
  call_timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "local", cfg.Source.Type)
	assert.Equal(t, "/srv/poems", cfg.Source.Dir)
	assert.True(t, cfg.Source.Watch)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 64, cfg.Embedder.Dimensions)
	assert.Equal(t, entities.MetricCosine, cfg.Metric())
	assert.Equal(t, "ollama", cfg.Generator.Type)
	assert.Equal(t, 3, cfg.Pipeline.TopK)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.CallTimeout)
	// untouched sections keep defaults
	assert.Equal(t, 200, cfg.Generator.MaxOutputTokens)
	assert.Empty(t, cfg.Source.BaseURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "poetrydb", cfg.Source.Type)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VERSECRAFT_ADDR", ":7000")
	t.Setenv("VERSECRAFT_GENERATOR_TYPE", "genai")
	t.Setenv("VERSECRAFT_TOP_K", "2")
	t.Setenv("VERSECRAFT_CALL_TIMEOUT", "45s")

	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9090\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "genai", cfg.Generator.Type)
	assert.Equal(t, 2, cfg.Pipeline.TopK)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.CallTimeout)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("VERSECRAFT_TOP_K", "many")
	_, err := Load(writeConfig(t, ""))
	require.ErrorContains(t, err, "VERSECRAFT_TOP_K")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown source", func(c *Config) { c.Source.Type = "ftp" }, "source.type"},
		{"unknown generator", func(c *Config) { c.Generator.Type = "markov" }, "generator.type"},
		{"unknown embedder", func(c *Config) { c.Embedder.Type = "word2vec" }, "embedder.type"},
		{"unknown index", func(c *Config) { c.Index.Type = "faiss" }, "index.type"},
		{"bad metric", func(c *Config) { c.Index.Metric = "manhattan" }, "index.metric"},
		{"pgvector without url", func(c *Config) { c.Index.Type = "pgvector" }, "database_url"},
		{"zero top_k", func(c *Config) { c.Pipeline.TopK = -1 }, "top_k"},
		{"zero tokens", func(c *Config) { c.Generator.MaxOutputTokens = -5 }, "max_output_tokens"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_RetrievalDisabledSkipsIndexChecks(t *testing.T) {
	cfg := Default()
	cfg.Source.Type = "none"
	cfg.Embedder.Type = "anything"
	cfg.Index.Type = "pgvector"
	assert.False(t, cfg.RetrievalEnabled())
	assert.NoError(t, cfg.Validate())
}
