package openai

import (
	"errors"
	"net/http"

	oai "github.com/sashabaranov/go-openai"
)

const (
	// OpenRouterBaseURL is the base URL for OpenRouter API.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for creating an OpenRouter client.
type OpenRouterConfig struct {
	// APIKey is your OpenRouter API key (required).
	APIKey string

	// SiteURL is your site URL for OpenRouter rankings (optional).
	SiteURL string

	// SiteName is your site/app name for OpenRouter rankings (optional).
	SiteName string
}

// NewOpenRouter creates a client for OpenRouter's OpenAI-compatible API.
func NewOpenRouter(cfg OpenRouterConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter api key is required")
	}

	config := oai.DefaultConfig(cfg.APIKey)
	config.BaseURL = OpenRouterBaseURL

	if cfg.SiteURL != "" || cfg.SiteName != "" {
		config.HTTPClient = &http.Client{
			Transport: &openRouterTransport{
				base:     http.DefaultTransport,
				siteURL:  cfg.SiteURL,
				siteName: cfg.SiteName,
			},
		}
	}

	return New(oai.NewClientWithConfig(config)), nil
}

// openRouterTransport adds OpenRouter-specific headers to requests.
type openRouterTransport struct {
	base     http.RoundTripper
	siteURL  string
	siteName string
}

func (t *openRouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid mutating the original
	req2 := req.Clone(req.Context())

	if t.siteURL != "" {
		req2.Header.Set("HTTP-Referer", t.siteURL)
	}
	if t.siteName != "" {
		req2.Header.Set("X-Title", t.siteName)
	}

	return t.base.RoundTrip(req2)
}
