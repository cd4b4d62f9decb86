package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// GenAIAdapter implements ports.Generator with Gemini models.
type GenAIAdapter struct {
	baseURL string
	model   string
	system  string
	logger  *zap.Logger
}

// NewGenAIAdapter creates a Gemini generator. baseURL is for tests.
func NewGenAIAdapter(baseURL, model, system string, logger *zap.Logger) *GenAIAdapter {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if system == "" {
		system = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenAIAdapter{baseURL: baseURL, model: model, system: system, logger: logger}
}

// Generate builds a client from the credential and makes one call.
func (a *GenAIAdapter) Generate(ctx context.Context, cred entities.Credential, prompt string, maxOutputTokens int) (string, error) {
	if cred.Empty() {
		return "", fmt.Errorf("%w: GenAI API key is required", entities.ErrGenerationService)
	}
	cfg := &genai.ClientConfig{
		APIKey:  cred.Reveal(),
		Backend: genai.BackendGeminiAPI,
	}
	if a.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: creating GenAI client: %w", entities.ErrGenerationService, err)
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(a.system, genai.RoleUser),
	}
	if maxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(maxOutputTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %w", entities.ErrGenerationService, err)
	}

	text := strings.TrimSpace(resp.Text())
	a.logger.Debug("gemini completion", zap.String("model", a.model), zap.Int("chars", len(text)))
	return text, nil
}

func (a *GenAIAdapter) Name() string { return fmt.Sprintf("genai:%s", a.model) }
