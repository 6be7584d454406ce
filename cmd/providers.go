package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/imgscan/internal/config"
	"github.com/lehigh-university-libraries/imgscan/internal/gemini"
	"github.com/lehigh-university-libraries/imgscan/internal/ollama"
	"github.com/lehigh-university-libraries/imgscan/internal/openai"
	"github.com/lehigh-university-libraries/imgscan/internal/providers"
)

// newDescriber builds the describer selected by the provider config
func newDescriber(p config.Provider) (providers.Describer, error) {
	httpClient := &http.Client{Timeout: time.Duration(p.TimeoutSeconds) * time.Second}

	switch p.Name {
	case config.ProviderOpenAI:
		return openai.New(p.ResolvedBaseURL(),
			openai.WithAPIKey(p.ResolvedAPIKey()),
			openai.WithHTTPClient(httpClient),
		), nil
	case config.ProviderOllama:
		o, err := ollama.New(p.ResolvedBaseURL(), httpClient)
		if err != nil {
			return nil, err
		}
		return o, nil
	case config.ProviderGemini:
		g, err := gemini.New(p.ResolvedAPIKey())
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", p.Name)
	}
}
