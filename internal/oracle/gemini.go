package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig holds the parameters of a Gemini backend.
type GeminiConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	Temperature  float32
}

// GeminiProvider implements Asker with the Gemini generative API.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGeminiProvider creates a Gemini client. The caller must Close it.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(cfg.Temperature)
	if cfg.SystemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(cfg.SystemPrompt))
	}

	return &GeminiProvider{client: client, model: model, name: name}, nil
}

// Ask implements Asker.
func (p *GeminiProvider) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &APIError{Provider: "gemini", Message: err.Error()}
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyAnswer)
	}
	return text, nil
}

// Provider returns "gemini".
func (p *GeminiProvider) Provider() string { return "gemini" }

// Model returns the model identifier.
func (p *GeminiProvider) Model() string { return p.name }

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
