package oracle

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAsker(t *testing.T) {
	tests := []struct {
		name     string
		cfg      FactoryConfig
		provider string
		wantErr  bool
	}{
		{name: "dashscope", cfg: FactoryConfig{Provider: "dashscope", Model: "qwen-max"}, provider: "dashscope"},
		{name: "openai", cfg: FactoryConfig{Provider: "openai"}, provider: "openai"},
		{name: "gemini without key", cfg: FactoryConfig{Provider: "gemini"}, wantErr: true},
		{name: "empty provider", cfg: FactoryConfig{}, wantErr: true},
		{name: "unknown provider", cfg: FactoryConfig{Provider: "ollama"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker, err := NewAsker(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, asker)
				return
			}
			require.NoError(t, err)
			named, ok := asker.(Named)
			require.True(t, ok)
			assert.Equal(t, tt.provider, named.Provider())
		})
	}
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("12"), genai.Text(".5")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	assert.Equal(t, "12.5", responseText(resp))
}
