package translate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaiduURL is the Baidu general translation endpoint.
	DefaultBaiduURL = "https://fanyi-api.baidu.com/api/trans/vip/translate"

	defaultBaiduTimeout = 10 * time.Second
	maxBaiduBodyBytes   = 1 << 20
)

// BaiduConfig holds Baidu translation credentials.
type BaiduConfig struct {
	AppID     string
	SecretKey string
	// BaseURL defaults to DefaultBaiduURL.
	BaseURL string
	Timeout time.Duration
}

// BaiduClient calls the Baidu general translation API.
type BaiduClient struct {
	httpClient *http.Client
	appID      string
	secretKey  string
	baseURL    string
	salt       func() string
}

var _ Translator = (*BaiduClient)(nil)

// NewBaiduClient creates a Baidu client.
func NewBaiduClient(cfg BaiduConfig) *BaiduClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaiduURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBaiduTimeout
	}
	return &BaiduClient{
		httpClient: &http.Client{Timeout: timeout},
		appID:      cfg.AppID,
		secretKey:  cfg.SecretKey,
		baseURL:    baseURL,
		salt: func() string {
			return strconv.FormatInt(time.Now().UnixNano()%1_000_000_000, 10)
		},
	}
}

type baiduResponse struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	TransResult []baiduTransResult `json:"trans_result"`
	ErrorCode   string             `json:"error_code"`
	ErrorMsg    string             `json:"error_msg"`
}

type baiduTransResult struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// Translate sends text with source language auto-detection. API-level
// failures are returned as *APIError; everything else is a transport error.
func (c *BaiduClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	salt := c.salt()

	q := url.Values{}
	q.Set("q", text)
	q.Set("from", "auto")
	q.Set("to", targetLang)
	q.Set("appid", c.appID)
	q.Set("salt", salt)
	q.Set("sign", Sign(c.appID, text, salt, c.secretKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("baidu: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("baidu: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBaiduBodyBytes))
	if err != nil {
		return "", fmt.Errorf("baidu: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Code: strconv.Itoa(resp.StatusCode), Message: string(body)}
	}

	var result baiduResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("baidu: failed to decode response: %w", err)
	}
	if len(result.TransResult) == 0 {
		msg := result.ErrorMsg
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &APIError{Code: result.ErrorCode, Message: msg}
	}
	return result.TransResult[0].Dst, nil
}

// Sign computes the Baidu request signature md5(appid+q+salt+key) as
// lowercase hex.
func Sign(appID, text, salt, secretKey string) string {
	sum := md5.Sum([]byte(appID + text + salt + secretKey))
	return hex.EncodeToString(sum[:])
}

// APIError is a translation rejected by the provider.
type APIError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return "baidu: translation failed: " + e.Message
	}
	return fmt.Sprintf("baidu: translation failed (code %s): %s", e.Code, e.Message)
}
