package imagegen

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

	"go.elastic.co/apm"
	"go.elastic.co/apm/module/apmhttp"
)

const (
	DefaultSize = "1024x1024"
	// MaxResponseBytes upper bound of an images API answer, inline images included
	MaxResponseBytes = 32 << 20
)

var (
	ErrNotConfigured = errors.New("Image generation is not configured")
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrNoImage       = errors.New("No image returned")
	ErrTooLarge      = errors.New("Images API response is too large")
)

// UpstreamError non 2xx answer of the images API
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("images api status %d: %s", e.StatusCode, e.Message)
}

type generationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type generationResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client OpenAI style images API client
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxBody    int64
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		maxBody:    MaxResponseBytes,
		httpClient: apmhttp.WrapClient(&http.Client{Timeout: timeout}),
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Generate returns a URL of the generated image, a data URL when the API answers inline
func (c *Client) Generate(ctx context.Context, prompt, size string) (string, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "imagegen.Client.Generate", "external")
	defer apmSpan.End()

	if !c.Configured() {
		return "", ErrNotConfigured
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if size == "" {
		size = DefaultSize
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(&generationRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   size,
	}); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", err
	}
	if int64(len(raw)) > c.maxBody {
		return "", ErrTooLarge
	}

	var out generationResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode images response: %w", decodeErr)
	}
	if len(out.Data) == 0 {
		return "", ErrNoImage
	}
	if u := strings.TrimSpace(out.Data[0].URL); u != "" {
		return u, nil
	}
	if b64 := strings.TrimSpace(out.Data[0].B64JSON); b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", ErrNoImage
}
