package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/lehigh-university-libraries/imgscan/internal/providers"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-1.5-flash"

	providerName = "gemini"
)

// ErrMissingAPIKey is returned when no key was configured or found in GEMINI_API_KEY.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable not set")

// Gemini is a describer for Google Gemini
type Gemini struct {
	apiKey string
}

// New returns a new Gemini describer. An empty key falls back to GEMINI_API_KEY.
func New(apiKey string) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Gemini{apiKey: apiKey}, nil
}

// Describe sends the image and prompt to Gemini and returns the reply
func (g *Gemini) Describe(ctx context.Context, image []byte, config providers.Config) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	if config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(config.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.ImageData("jpeg", image), genai.Text(config.Prompt))
	if err != nil {
		return "", classify(err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", providers.MalformedError(providerName, errors.New("no candidates returned"))
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", providers.MalformedError(providerName, errors.New("empty content returned"))
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", providers.MalformedError(providerName, errors.New("unexpected response format"))
	}
	return text, nil
}

func classify(err error) *providers.DescribeError {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPCode() > 0 {
		return providers.StatusError(providerName, apiErr.HTTPCode(), apiErr.Error())
	}
	return providers.RequestError(providerName, err)
}
