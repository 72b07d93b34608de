package oracle

import (
	"context"
	"fmt"
	"time"
)

// FactoryConfig selects and configures an oracle backend. It mirrors the
// oracle config section without importing the config package.
type FactoryConfig struct {
	// Provider is "dashscope", "openai" or "gemini".
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	Temperature  float64
	Timeout      time.Duration
	MaxRetries   int
}

// NewAsker creates the Asker named by cfg.Provider.
func NewAsker(ctx context.Context, cfg FactoryConfig) (Asker, error) {
	switch cfg.Provider {
	case "dashscope", "openai":
		return NewChatProvider(ChatConfig{
			Provider:     cfg.Provider,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			BaseURL:      cfg.BaseURL,
			SystemPrompt: cfg.SystemPrompt,
			Temperature:  cfg.Temperature,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		}), nil
	case "gemini":
		p, err := NewGeminiProvider(ctx, GeminiConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
			Temperature:  float32(cfg.Temperature),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", cfg.Provider)
	}
}
