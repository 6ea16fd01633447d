package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"petreel/internal/infra"
)

// Options configures the Minimax media-generation client.
type Options struct {
	APIKey         string
	GroupID        string
	BaseURL        string
	ImageModel     string
	VideoModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Minimax image and video generation APIs.
// It absorbs the API's request/response variability so the pipeline above it
// only ever sees a clean success-or-error contract.
type Client struct {
	apiKey       string
	groupID      string
	baseURL      string
	imageModel   string
	videoModel   string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 150 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.minimaxi.chat/v1"
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = "image-01"
	}
	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = "I2V-01"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		groupID:      strings.TrimSpace(opts.GroupID),
		baseURL:      baseURL,
		imageModel:   imageModel,
		videoModel:   videoModel,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// VideoModel returns the configured video model identifier.
func (c *Client) VideoModel() string {
	return c.videoModel
}

// postJSON submits a JSON payload and returns the decoded response tree.
// Non-2xx statuses and non-zero envelope codes surface as *APIError.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("minimax: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("minimax: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req)
}

// getJSON performs a GET with the given query values and returns the decoded
// response tree.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("minimax: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("minimax: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("minimax: read response: %w", err)
	}

	var decoded map[string]any
	if resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if json.Unmarshal(raw, &decoded) == nil {
			if code, ok := extractInt(decoded, "base_resp.status_code"); ok && code != 0 {
				apiErr.Code = code
				apiErr.Message = extractString(decoded, "base_resp.status_msg")
			}
		}
		return nil, apiErr
	}

	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("minimax: decode response: %w", err)
	}
	if code, ok := extractInt(decoded, "base_resp.status_code"); ok && code != 0 {
		return nil, &APIError{
			HTTPStatus: resp.StatusCode,
			Code:       code,
			Message:    extractString(decoded, "base_resp.status_msg"),
		}
	}
	return decoded, nil
}

// truncatePrompt bounds a prompt to the endpoint's maximum length. Truncation
// is rune-based and deterministic: feeding an already-truncated prompt back
// through yields the same string.
func truncatePrompt(prompt string, max int) string {
	prompt = strings.TrimSpace(prompt)
	if max <= 0 {
		return prompt
	}
	runes := []rune(prompt)
	if len(runes) <= max {
		return prompt
	}
	return strings.TrimSpace(string(runes[:max]))
}
