package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// OpenAIAdapter implements ports.Embedder against an OpenAI-compatible
// /v1/embeddings endpoint. One request carries the whole batch.
type OpenAIAdapter struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
	logger  *zap.Logger
}

// NewOpenAIAdapter creates a new OpenAI embedding adapter.
func NewOpenAIAdapter(baseURL, model string, dims int, logger *zap.Logger) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed sends every text in one request and returns vectors in input order.
func (a *OpenAIAdapter) Embed(ctx context.Context, cred entities.Credential, texts []string) ([]entities.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	jsonData, err := json.Marshal(openAIEmbedRequest{Model: a.model, Input: texts, Dimensions: a.dims})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %w", entities.ErrEmbeddingService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", entities.ErrEmbeddingService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Reveal())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling OpenAI: %w", entities.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", entities.ErrEmbeddingService, statusMessage(resp))
	}

	var embedResp openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", entities.ErrEmbeddingService, err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings for %d inputs", entities.ErrEmbeddingService, len(embedResp.Data), len(texts))
	}

	sort.SliceStable(embedResp.Data, func(i, j int) bool { return embedResp.Data[i].Index < embedResp.Data[j].Index })
	vectors := make([]entities.Vector, len(embedResp.Data))
	for i, d := range embedResp.Data {
		if d.Index != i {
			return nil, fmt.Errorf("%w: embedding indices are not 0..%d", entities.ErrEmbeddingService, len(texts)-1)
		}
		vectors[i] = d.Embedding
	}
	a.logger.Debug("openai embeddings", zap.String("model", a.model), zap.Int("count", len(vectors)))
	return vectors, nil
}

func (a *OpenAIAdapter) Dimensions() int { return a.dims }

func (a *OpenAIAdapter) Name() string { return "openai:" + a.model }

// statusMessage reads the API error body into a one-line message.
func statusMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr openAIErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
