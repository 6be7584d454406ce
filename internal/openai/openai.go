package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/imgscan/internal/providers"
)

const (
	// DefaultBaseURL points at a local LM Studio server.
	DefaultBaseURL = "http://127.0.0.1:1234/v1"
	// DefaultModel is the vision model LM Studio ships with.
	DefaultModel = "llama3.1-11b-vision-instruct"

	defaultTimeout = 60 * time.Second
	providerName   = "openai"
)

// OpenAI is a describer for any OpenAI-compatible chat completions API
// (OpenAI, LM Studio, vLLM, llama.cpp server).
type OpenAI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the describer.
type Option func(*OpenAI)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OpenAI) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithAPIKey sets the bearer token. Local servers usually need none.
func WithAPIKey(key string) Option {
	return func(o *OpenAI) {
		o.apiKey = strings.TrimSpace(key)
	}
}

// New returns a new OpenAI-compatible describer for baseURL
func New(baseURL string, opts ...Option) *OpenAI {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	o := &OpenAI{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// Describe sends the JPEG image with the prompt and returns the model's reply
func (o *OpenAI) Describe(ctx context.Context, image []byte, config providers.Config) (string, error) {
	url := o.baseURL + "/chat/completions"

	requestBody, err := json.Marshal(chatRequest{
		Model: config.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)}},
					{Type: "text", Text: config.Prompt},
				},
			},
		},
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", providers.RequestError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if resp.StatusCode == http.StatusNotFound {
			msg = fmt.Sprintf("endpoint %s not found, check the server setup: %s", url, msg)
		}
		return "", providers.StatusError(providerName, resp.StatusCode, msg)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", providers.MalformedError(providerName, fmt.Errorf("failed to decode response body: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", providers.MalformedError(providerName, errors.New("no choices returned"))
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", providers.MalformedError(providerName, errors.New("empty content in response message"))
	}

	return content, nil
}
