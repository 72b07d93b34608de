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

	"github.com/chromedp/chromedp"
)

// Screenshotter captures a web page as an image.
type Screenshotter interface {
	Capture(ctx context.Context, pageURL string) ([]byte, error)
}

// urlscan.io defaults.
const (
	DefaultURLScanBaseURL = "https://urlscan.io"
	DefaultURLScanWait    = 15 * time.Second
	defaultURLScanPoll    = 5 * time.Second
	defaultURLScanPolls   = 6
	maxScreenshotBytes    = 20 << 20
)

// URLScanConfig configures the urlscan.io screenshotter.
type URLScanConfig struct {
	APIKey  string
	BaseURL string
	// Wait is the delay between submitting a scan and the first screenshot
	// fetch.
	Wait time.Duration
	// PollInterval and MaxPolls control re-fetching while the screenshot
	// is still being rendered (404).
	PollInterval time.Duration
	MaxPolls     int
	// Visibility is the scan visibility, "public" by default.
	Visibility string
	Timeout    time.Duration
}

// URLScanProvider submits a public scan to urlscan.io and downloads the
// screenshot it renders.
type URLScanProvider struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	wait         time.Duration
	pollInterval time.Duration
	maxPolls     int
	visibility   string
}

var _ Screenshotter = (*URLScanProvider)(nil)

// NewURLScanProvider creates a urlscan.io screenshotter.
func NewURLScanProvider(cfg URLScanConfig) *URLScanProvider {
	p := &URLScanProvider{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		wait:         cfg.Wait,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		visibility:   cfg.Visibility,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultURLScanBaseURL
	}
	if p.wait < 0 {
		p.wait = 0
	} else if cfg.Wait == 0 {
		p.wait = DefaultURLScanWait
	}
	if p.pollInterval <= 0 {
		p.pollInterval = defaultURLScanPoll
	}
	if p.maxPolls <= 0 {
		p.maxPolls = defaultURLScanPolls
	}
	if p.visibility == "" {
		p.visibility = "public"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	p.httpClient = &http.Client{Timeout: timeout}
	return p
}

type urlscanSubmitRequest struct {
	URL        string `json:"url"`
	Visibility string `json:"visibility"`
}

type urlscanSubmitResponse struct {
	UUID    string `json:"uuid"`
	Result  string `json:"result"`
	Message string `json:"message"`
}

// Capture implements Screenshotter.
func (p *URLScanProvider) Capture(ctx context.Context, pageURL string) ([]byte, error) {
	uuid, err := p.submit(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if err := sleepCtx(ctx, p.wait); err != nil {
		return nil, err
	}

	shotURL := p.baseURL + "/screenshots/" + uuid + ".png"
	for attempt := 1; ; attempt++ {
		data, status, err := p.fetch(ctx, shotURL)
		if err != nil {
			return nil, err
		}
		if status == http.StatusOK {
			return data, nil
		}
		if status != http.StatusNotFound || attempt >= p.maxPolls {
			return nil, fmt.Errorf("urlscan: screenshot download failed: HTTP %d", status)
		}
		if err := sleepCtx(ctx, p.pollInterval); err != nil {
			return nil, err
		}
	}
}

func (p *URLScanProvider) submit(ctx context.Context, pageURL string) (string, error) {
	body, err := json.Marshal(urlscanSubmitRequest{URL: strings.TrimSpace(pageURL), Visibility: p.visibility})
	if err != nil {
		return "", fmt.Errorf("urlscan: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/scan/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("urlscan: create request: %w", err)
	}
	req.Header.Set("API-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("urlscan: submit failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("urlscan: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("urlscan: scan request failed: HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out urlscanSubmitResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("urlscan: decode response: %w", err)
	}
	if out.UUID == "" {
		return "", errors.New("urlscan: response has no scan uuid")
	}
	return out.UUID, nil
}

func (p *URLScanProvider) fetch(ctx context.Context, shotURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shotURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("urlscan: create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("urlscan: screenshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScreenshotBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("urlscan: read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, 0, errors.New("urlscan: empty screenshot")
	}
	return data, http.StatusOK, nil
}

// ChromeConfig configures the local headless Chrome screenshotter.
type ChromeConfig struct {
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// Quality is the JPEG quality, 90 by default.
	Quality int
	// Settle is how long to wait after load before capturing.
	Settle  time.Duration
	Timeout time.Duration
}

// ChromeProvider captures full-page screenshots with a local headless
// Chrome through chromedp. Each capture starts a fresh browser.
type ChromeProvider struct {
	cfg ChromeConfig
}

var _ Screenshotter = (*ChromeProvider)(nil)

// NewChromeProvider creates a chromedp screenshotter.
func NewChromeProvider(cfg ChromeConfig) *ChromeProvider {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 90
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ChromeProvider{cfg: cfg}
}

// Capture implements Screenshotter.
func (p *ChromeProvider) Capture(ctx context.Context, pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1440, 1080),
	)
	if p.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ExecPath))
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(strings.TrimSpace(pageURL)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(p.cfg.Settle),
		chromedp.FullScreenshot(&buf, p.cfg.Quality),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome: capture %s: %w", pageURL, err)
	}
	if len(buf) == 0 {
		return nil, errors.New("chrome: empty screenshot")
	}
	return buf, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
