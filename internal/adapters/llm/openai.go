package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// OpenAIAdapter implements ports.Generator against an OpenAI-compatible
// /v1/chat/completions endpoint.
type OpenAIAdapter struct {
	baseURL string
	model   string
	system  string
	client  *http.Client
	logger  *zap.Logger
}

// NewOpenAIAdapter creates a chat-completions generator.
func NewOpenAIAdapter(baseURL, model, system string, logger *zap.Logger) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if system == "" {
		system = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		system:  system,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the system persona and the prompt as one chat turn.
func (a *OpenAIAdapter) Generate(ctx context.Context, cred entities.Credential, prompt string, maxOutputTokens int) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: a.system},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %w", entities.ErrGenerationService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", entities.ErrGenerationService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Reveal())

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling OpenAI: %w", entities.ErrGenerationService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("%w: status %d: %s", entities.ErrGenerationService, resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", entities.ErrGenerationService, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", entities.ErrGenerationService, err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", entities.ErrGenerationService)
	}

	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	a.logger.Debug("openai completion", zap.String("model", a.model), zap.Int("chars", len(text)))
	return text, nil
}

func (a *OpenAIAdapter) Name() string { return "openai:" + a.model }
