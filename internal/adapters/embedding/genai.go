package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// GenAIAdapter implements ports.Embedder with Google's Gemini API.
// The user's credential is the API key, so a client is built per call.
type GenAIAdapter struct {
	baseURL  string
	model    string
	dims     int
	taskType string
	logger   *zap.Logger
}

// NewGenAIAdapter creates a Gemini embedder. baseURL overrides the API
// endpoint and is empty in production.
func NewGenAIAdapter(baseURL, model string, dims int, logger *zap.Logger) *GenAIAdapter {
	if model == "" {
		model = "gemini-embedding-001"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenAIAdapter{
		baseURL:  baseURL,
		model:    model,
		dims:     dims,
		taskType: "SEMANTIC_SIMILARITY",
		logger:   logger,
	}
}

// Embed uses the native batch call; the response must be index-aligned.
func (a *GenAIAdapter) Embed(ctx context.Context, cred entities.Credential, texts []string) ([]entities.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	client, err := newGenAIClient(ctx, a.baseURL, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrEmbeddingService, err)
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: a.taskType}
	if a.dims > 0 {
		d := int32(a.dims)
		cfg.OutputDimensionality = &d
	}

	result, err := client.Models.EmbedContent(ctx, a.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %w", entities.ErrEmbeddingService, err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings for %d inputs", entities.ErrEmbeddingService, len(result.Embeddings), len(texts))
	}

	vectors := make([]entities.Vector, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	a.logger.Debug("gemini embeddings", zap.String("model", a.model), zap.Int("count", len(vectors)))
	return vectors, nil
}

func (a *GenAIAdapter) Dimensions() int { return a.dims }

func (a *GenAIAdapter) Name() string { return fmt.Sprintf("genai:%s", a.model) }

func newGenAIClient(ctx context.Context, baseURL string, cred entities.Credential) (*genai.Client, error) {
	if cred.Empty() {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  cred.Reveal(),
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return client, nil
}
