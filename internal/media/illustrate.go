package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Illustrator generates an image from a text prompt.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) ([]byte, error)
}

// DashScope text-to-image defaults.
const (
	DefaultDashScopeBaseURL    = "https://dashscope.aliyuncs.com"
	DefaultDashScopeImageModel = "wan2.2-t2i-flash"
	DefaultDashScopeImageSize  = "1440*1080"
	defaultTaskPollInterval    = 3 * time.Second
	defaultTaskTimeout         = 3 * time.Minute
)

// IllustrationPromptTemplate receives the paper block as %s.
const IllustrationPromptTemplate = `以下是一个文章的相关信息，包括题目、链接、期刊、以及摘要，请帮我生成一张相关插画；
要求符合伦理，不能出现让人反胃的画面，要符合论文主题，论文具体内容为%s。`

// ErrGenerationFailed is returned when the provider reports a failed task.
var ErrGenerationFailed = errors.New("media: image generation failed")

// DashScopeConfig configures the DashScope illustrator.
type DashScopeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	// PollInterval is the delay between task status checks.
	PollInterval time.Duration
	// TaskTimeout bounds the whole generate-and-download cycle.
	TaskTimeout time.Duration
}

// DashScopeProvider creates images with the DashScope asynchronous
// text-to-image API and downloads the first result.
type DashScopeProvider struct {
	httpClient   *http.Client
	downloader   *Downloader
	apiKey       string
	baseURL      string
	model        string
	size         string
	pollInterval time.Duration
	taskTimeout  time.Duration
}

var _ Illustrator = (*DashScopeProvider)(nil)

// NewDashScopeProvider creates a DashScope illustrator. Results are fetched
// with downloader.
func NewDashScopeProvider(cfg DashScopeConfig, downloader *Downloader) *DashScopeProvider {
	p := &DashScopeProvider{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		downloader:   downloader,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		size:         cfg.Size,
		pollInterval: cfg.PollInterval,
		taskTimeout:  cfg.TaskTimeout,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultDashScopeBaseURL
	}
	if p.model == "" {
		p.model = DefaultDashScopeImageModel
	}
	if p.size == "" {
		p.size = DefaultDashScopeImageSize
	}
	if p.pollInterval <= 0 {
		p.pollInterval = defaultTaskPollInterval
	}
	if p.taskTimeout <= 0 {
		p.taskTimeout = defaultTaskTimeout
	}
	if p.downloader == nil {
		p.downloader = NewDownloader(DownloaderConfig{})
	}
	return p
}

type imageSynthesisRequest struct {
	Model      string                   `json:"model"`
	Input      imageSynthesisInput      `json:"input"`
	Parameters imageSynthesisParameters `json:"parameters"`
}

type imageSynthesisInput struct {
	Prompt string `json:"prompt"`
}

type imageSynthesisParameters struct {
	Size string `json:"size"`
	N    int    `json:"n"`
}

type taskResponse struct {
	RequestID string     `json:"request_id"`
	Output    taskOutput `json:"output"`
	Code      string     `json:"code"`
	Message   string     `json:"message"`
}

type taskOutput struct {
	TaskID     string       `json:"task_id"`
	TaskStatus string       `json:"task_status"`
	Results    []taskResult `json:"results"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
}

type taskResult struct {
	URL     string `json:"url"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Illustrate implements Illustrator.
func (p *DashScopeProvider) Illustrate(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	taskID, err := p.createTask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	imageURL, err := p.waitForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result, err := p.downloader.Download(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("dashscope: download image: %w", err)
	}
	return result.Content, nil
}

func (p *DashScopeProvider) createTask(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(imageSynthesisRequest{
		Model:      p.model,
		Input:      imageSynthesisInput{Prompt: prompt},
		Parameters: imageSynthesisParameters{Size: p.size, N: 1},
	})
	if err != nil {
		return "", fmt.Errorf("dashscope: marshal request: %w", err)
	}

	endpoint := p.baseURL + "/api/v1/services/aigc/text2image/image-synthesis"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dashscope: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DashScope-Async", "enable")

	task, err := p.do(req)
	if err != nil {
		return "", err
	}
	if task.Output.TaskID == "" {
		return "", fmt.Errorf("dashscope: response has no task id: %w", ErrGenerationFailed)
	}
	return task.Output.TaskID, nil
}

func (p *DashScopeProvider) waitForTask(ctx context.Context, taskID string) (string, error) {
	endpoint := p.baseURL + "/api/v1/tasks/" + taskID
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("dashscope: create request: %w", err)
		}
		task, err := p.do(req)
		if err != nil {
			return "", err
		}

		switch task.Output.TaskStatus {
		case "SUCCEEDED":
			for _, r := range task.Output.Results {
				if r.URL != "" {
					return r.URL, nil
				}
			}
			return "", fmt.Errorf("dashscope: task %s returned no image: %w", taskID, ErrGenerationFailed)
		case "FAILED", "CANCELED", "UNKNOWN":
			msg := task.Output.Message
			if msg == "" {
				msg = task.Message
			}
			return "", fmt.Errorf("dashscope: task %s %s: %s: %w", taskID, strings.ToLower(task.Output.TaskStatus), msg, ErrGenerationFailed)
		}

		if err := sleepCtx(ctx, p.pollInterval); err != nil {
			return "", fmt.Errorf("dashscope: waiting for task %s: %w", taskID, err)
		}
	}
}

func (p *DashScopeProvider) do(req *http.Request) (*taskResponse, error) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashscope: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("dashscope: read response: %w", err)
	}

	var task taskResponse
	if err := json.Unmarshal(body, &task); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("dashscope: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("dashscope: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashscope: HTTP %d: %s %s", resp.StatusCode, task.Code, task.Message)
	}
	return &task, nil
}
