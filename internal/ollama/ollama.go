package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/imgscan/internal/providers"
	"github.com/ollama/ollama/api"
)

const (
	// DefaultBaseURL is where a local Ollama listens.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is a small vision-capable Ollama model.
	DefaultModel = "llama3.2-vision"

	providerName   = "ollama"
	defaultTimeout = 120 * time.Second
)

// Ollama is a describer backed by the Ollama chat API
type Ollama struct {
	client *api.Client
}

// New returns a new Ollama describer talking to baseURL
func New(baseURL string, httpClient *http.Client) (*Ollama, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Ollama{client: api.NewClient(u, httpClient)}, nil
}

// Describe sends the image to the chat endpoint and returns the reply
func (o *Ollama) Describe(ctx context.Context, image []byte, config providers.Config) (string, error) {
	stream := false
	options := map[string]any{
		"temperature": config.Temperature,
	}
	if config.MaxTokens > 0 {
		options["num_predict"] = config.MaxTokens
	}

	req := &api.ChatRequest{
		Model: config.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: config.Prompt,
				Images:  []api.ImageData{image},
			},
		},
		Stream:  &stream,
		Options: options,
	}

	var response strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", classify(err)
	}

	content := strings.TrimSpace(response.String())
	if content == "" {
		return "", providers.MalformedError(providerName, errors.New("empty response"))
	}
	return content, nil
}

func classify(err error) *providers.DescribeError {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return providers.StatusError(providerName, statusErr.StatusCode, msg)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return providers.MalformedError(providerName, err)
	}
	return providers.RequestError(providerName, err)
}
