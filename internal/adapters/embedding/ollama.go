// Package embedding provides the Embedder adapters.
// Clean Architecture: each adapter implements ports.Embedder.
// They know about vendor APIs but the domain layer doesn't.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// OllamaAdapter implements ports.Embedder using the Ollama API.
// Ollama is unauthenticated, so the credential is ignored.
type OllamaAdapter struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaAdapter creates a new Ollama embedding adapter.
func NewOllamaAdapter(baseURL, model string, dims int, logger *zap.Logger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// ollamaEmbedRequest is the Ollama API request format.
type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaEmbedResponse is the Ollama API response format.
type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls /api/embeddings once per text, in order. The first failure
// aborts the batch.
func (a *OllamaAdapter) Embed(ctx context.Context, _ entities.Credential, texts []string) ([]entities.Vector, error) {
	vectors := make([]entities.Vector, len(texts))
	for i, text := range texts {
		v, err := a.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: ollama text %d: %w", entities.ErrEmbeddingService, i, err)
		}
		vectors[i] = v
	}
	a.logger.Debug("ollama embeddings", zap.String("model", a.model), zap.Int("count", len(vectors)))
	return vectors, nil
}

func (a *OllamaAdapter) embedOne(ctx context.Context, text string) (entities.Vector, error) {
	jsonData, err := json.Marshal(ollamaEmbedRequest{Model: a.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return embedResp.Embedding, nil
}

// Dimensions returns the configured size, 0 when unknown.
func (a *OllamaAdapter) Dimensions() int { return a.dims }

func (a *OllamaAdapter) Name() string { return "ollama:" + a.model }
