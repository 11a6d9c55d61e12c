// Package genai is a thin client for an OpenAI-compatible chat completion
// service, used for both text and vision generation.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// ErrNotConfigured is returned when no API key is configured. No upstream
// call can ever succeed in that state, so callers surface it immediately
// instead of falling back.
var ErrNotConfigured = errors.New("genai: API key not configured")

// ErrUpstream wraps transport failures and non-2xx upstream responses.
var ErrUpstream = errors.New("genai: upstream request failed")

type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	visionModel string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if raw != "" {
			c.baseURL = raw
		}
	}
}
func WithModels(text, vision string) Option {
	return func(c *Client) {
		if text != "" {
			c.model = text
		}
		if vision != "" {
			c.visionModel = vision
		}
	}
}

// New creates a client. An empty apiKey is allowed so the application can
// start without credentials; calls then fail with ErrNotConfigured.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: 60 * time.Second},
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		model:       "meta-llama/llama-3.3-70b-instruct",
		visionModel: "meta-llama/llama-3.2-11b-vision-instruct",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Image is an inline image payload for vision requests.
type Image struct {
	MIMEType string
	Data     []byte // raw bytes, base64-encoded on the wire
}

func (i Image) dataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the raw
// completion text. A response with no choices yields an empty string, not
// an error; downstream cleaning and extraction decide what to do with it.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
}

// CompleteVision sends a prompt together with an inline image.
func (c *Client) CompleteVision(ctx context.Context, prompt string, img Image) (string, error) {
	parts := []contentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &imageURL{URL: img.dataURL()}},
	}
	return c.chat(ctx, chatRequest{
		Model:    c.visionModel,
		Messages: []message{{Role: "user", Content: parts}},
	})
}

func (c *Client) chat(ctx context.Context, body chatRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: %s", ErrUpstream, resp.Status, truncate(raw, 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
