package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults for OpenAI-compatible chat backends.
const (
	DefaultDashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultChatModel        = "qwen-plus"
	defaultChatTimeout      = 60 * time.Second
	defaultChatRetryDelay   = 2 * time.Second
	maxChatResponseBytes    = 10 << 20
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatErrorResponse struct {
	Error chatErrorDetail `json:"error"`
}

type chatErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ChatConfig holds the parameters of an OpenAI-compatible chat backend.
type ChatConfig struct {
	// Provider names the backend in errors and metrics ("dashscope", "openai").
	Provider string
	APIKey   string
	// Model is the model identifier (e.g. "qwen-plus", "deepseek-v3").
	Model string
	// BaseURL is the API base URL without the /chat/completions suffix.
	BaseURL string
	// SystemPrompt is sent before the user prompt when non-empty.
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts for transient errors.
	MaxRetries int
}

// ChatProvider implements Asker on top of the Chat Completions API. DashScope
// compatible mode, DeepSeek and OpenAI all speak this protocol.
type ChatProvider struct {
	httpClient   *http.Client
	provider     string
	apiKey       string
	model        string
	baseURL      string
	systemPrompt string
	temperature  float64
	maxTokens    int
	maxRetries   int
	retryDelay   time.Duration
}

// NewChatProvider creates a chat provider. Empty fields fall back to the
// DashScope endpoint and model.
func NewChatProvider(cfg ChatConfig) *ChatProvider {
	provider := cfg.Provider
	if provider == "" {
		provider = "dashscope"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if provider == "openai" {
			baseURL = DefaultOpenAIBaseURL
		} else {
			baseURL = DefaultDashScopeBaseURL
		}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &ChatProvider{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		provider:     provider,
		apiKey:       cfg.APIKey,
		model:        model,
		baseURL:      baseURL,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   maxRetries,
		retryDelay:   defaultChatRetryDelay,
	}
}

// Ask sends prompt as the user message and returns the first choice's
// content. Transient errors (429, 5xx) are retried up to MaxRetries times.
func (p *ChatProvider) Ask(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	if p.systemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.systemPrompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%s: context cancelled during retry wait: %w", p.provider, ctx.Err())
			case <-time.After(delay):
			}
		}

		answer, err := p.doRequest(ctx, req)
		if err == nil {
			return answer, nil
		}
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	if p.maxRetries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("%s: exhausted %d retries: %w", p.provider, p.maxRetries, lastErr)
}

// Provider returns the backend name.
func (p *ChatProvider) Provider() string {
	return p.provider
}

// Model returns the model identifier.
func (p *ChatProvider) Model() string {
	return p.model
}

func (p *ChatProvider) doRequest(ctx context.Context, chatReq chatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", p.provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", p.provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", p.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxChatResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response body: %w", p.provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseChatAPIError(p.provider, resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%s: failed to unmarshal response: %w", p.provider, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response: %w", p.provider, ErrEmptyAnswer)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func parseChatAPIError(provider string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp chatErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
