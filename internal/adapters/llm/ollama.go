// Package llm provides the Generator adapters.
// Clean Architecture: each adapter implements ports.Generator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// DefaultSystemPrompt is the persona every backend is given.
const DefaultSystemPrompt = "You are a poet."

// OllamaLLMAdapter implements ports.Generator using the Ollama API.
type OllamaLLMAdapter struct {
	baseURL string
	model   string
	system  string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaLLMAdapter creates a new Ollama generator.
func NewOllamaLLMAdapter(baseURL, model, system string, logger *zap.Logger) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if system == "" {
		system = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaLLMAdapter{
		baseURL: baseURL,
		model:   model,
		system:  system,
		client: &http.Client{
			Timeout: 300 * time.Second, // local models can be slow to load
		},
		logger: logger,
	}
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate asks Ollama for a single non-streamed completion. The credential is
// not used.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, _ entities.Credential, prompt string, maxOutputTokens int) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:   a.model,
		Prompt:  prompt,
		System:  a.system,
		Stream:  false,
		Options: ollamaOptions{NumPredict: maxOutputTokens},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %w", entities.ErrGenerationService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", entities.ErrGenerationService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling Ollama: %w", entities.ErrGenerationService, err)
	}
	defer resp.Body.Close()

	var genResp ollamaGenerateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&genResp)
	if resp.StatusCode != http.StatusOK {
		if genResp.Error != "" {
			return "", fmt.Errorf("%w: Ollama returned status %d: %s", entities.ErrGenerationService, resp.StatusCode, genResp.Error)
		}
		return "", fmt.Errorf("%w: Ollama returned status %d", entities.ErrGenerationService, resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decoding response: %w", entities.ErrGenerationService, decodeErr)
	}

	a.logger.Debug("ollama completion", zap.String("model", a.model), zap.Int("chars", len(genResp.Response)))
	return strings.TrimSpace(genResp.Response), nil
}

func (a *OllamaLLMAdapter) Name() string { return "ollama:" + a.model }
